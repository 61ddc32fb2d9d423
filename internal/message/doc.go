// Package message owns chat message content.
//
// # Store
//
// A Store maps opaque IDs to Messages. Agent histories never hold message
// content, only IDs that point into the Store of the chat they belong to:
//
//	id := store.Insert(message.User("hello", "Ada"))
//	msg, ok := store.Get(id)
//
// While an assistant reply streams, its placeholder grows through
// AppendContent. Fragments for one message are applied in receipt order and
// never rewritten.
//
// # Concurrency
//
// A Store is not safe for concurrent use on its own. The chat that owns it is
// the unit of exclusive access; callers (the dispatcher) hold that lock for the
// duration of a single in-memory mutation.
package message
