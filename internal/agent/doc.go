// Package agent defines chat participants and the registry that creates them.
//
// # Identity
//
// Every participant has two keys:
//
//   - ID: opaque, minted per instance, stable for the instance lifetime
//   - Name: UserDefault, AssistantDefault, or Named(text); the lookup key for
//     configuration persisted once and shared across chats
//
// # Roles
//
// Role is a closed variant: User, or Assistant carrying free-text
// instructions. Callers switch on Role.Kind at exactly two decision points:
//
//   - MessageRole: which message role an agent's messages carry
//   - Dispatchable: whether the dispatcher asks the agent for replies
//
// # Registry
//
//	user := agent.NewUser(agent.UserDefault())
//	alice := agent.NewAssistant(store, agent.Named("Alice"), "Be concise.", "A terse helper")
//
// NewAssistant renders the system prompt from a fixed template and inserts it
// into the chat's message store as the only entry of the new history. The
// rendering is deterministic for a given name and instructions.
package agent
