// Package dispatch runs conversation turns.
//
// # State machine
//
//	Idle -> Dispatching -> StreamingAll -> Linearizing -> Idle
//
// The streaming flag is raised on entering Dispatching and lowered only after
// Linearizing completes. While it is raised, Submit, NewChat and SelectChat
// return ErrBusy.
//
// # Turn protocol
//
// Submit, synchronously:
//
//  1. resolve the sole user agent and the assistants of the selected chat
//  2. insert the user message and append it to every agent's history
//  3. persist a checkpoint
//  4. for each assistant, build its context from its own history, insert an
//     empty placeholder and append it to the assistant's and the user's
//     history
//
// Then in the background, one goroutine per assistant streams deltas into its
// placeholder and, when the stream ends, takes the next value of a
// turn-scoped counter as its completion rank. After all streams end the
// replies are sorted by rank and appended, in that order, to every
// assistant's history. The state is saved and the dispatcher returns to Idle.
//
// Assistants never see each other's replies from the turn in progress; they
// see all of them, in completion order, from the next turn on.
//
// # Failures
//
// Missing credentials, a missing chat, or a user count other than one make
// Submit fail before anything is mutated. A failing stream is logged, keeps
// whatever content already arrived, and is ranked like any other reply.
//
// # Locking
//
// The whole state is guarded by one RWMutex. Writers hold it only for
// in-memory updates, never across a network wait. View gives readers a
// consistent snapshot; a reply observed mid-stream is a prefix of its final
// content.
//
// # Events
//
// Subscribe delivers user_message, reply_started, delta, reply_done and
// turn_done events per chat. Publishing never blocks; a slow subscriber loses
// events rather than stalling the turn.
package dispatch
