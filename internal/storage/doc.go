// Package storage converts the in-memory conversation graph to and from the
// flat, string-keyed schema written to a kvstore.KV.
//
// # Keys
//
// Three keys are read and written independently:
//
//	chorus_settings       RawSettings      run count, customization, credentials, selections
//	chorus_agent_configs  RawAgentConfigs  agent configs keyed by raw agent name
//	chorus_chats          RawChats         every chat with messages and agent instances
//
// Agent configuration lives only under chorus_agent_configs. A persisted agent
// instance carries its id, raw name and history; its config is recovered by
// name when the chat is rehydrated. Long instructions are therefore stored
// once no matter how many chats use them.
//
// # Identifiers
//
// Message, agent and chat ids are opaque in memory. They are stringified here
// and nowhere else. Raw agent names are "_USER", "_ASSISTANT", or the name
// text.
//
// # Round trip
//
// ToRaw and FromRaw are inverses on well-formed graphs:
//
//	FromRaw(ToRaw(s)) == s
//	ToRaw(FromRaw(r)) == r
//
// # Recovery
//
// Adapter.GetOrInit never fails on a missing or corrupt key. It logs, builds
// the default for that key and writes it back immediately. Only store I/O
// failures are returned.
//
// # Sealing
//
// With a Sealer configured, credentials are written as sealed_auth instead
// of the clear auth object.
package storage
