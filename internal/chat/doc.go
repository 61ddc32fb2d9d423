// Package chat aggregates one conversation: a message store, its agents, and
// each agent's linked history into that store.
//
// # Shape
//
//	Chat
//	├── Messages  *message.Store          (arena, owned by this chat only)
//	└── Agents    map[agent.ID]*Instance   (each with History []message.ID)
//
// Histories reference messages, they never copy them. A message may appear
// in several histories; Validate checks that every reference resolves.
//
// # Invariants
//
//   - exactly one agent has the User role
//   - every history entry exists in Messages
//   - Clone forks: new chat ID and timestamp, value-copied content
//
// # Agent enumeration
//
// UserAgentIDs and AssistantAgentIDs return iterators so callers pick the
// collection (slices.Collect, a set, a count). Iteration order follows map
// order and is unspecified.
package chat
