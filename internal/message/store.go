// ABOUTME: Store is the arena holding every message of one chat
// ABOUTME: Supports insert, lookup, streamed in-place append, and removal

package message

// Store maps message IDs to their content.
type Store struct {
	messages map[ID]Message
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{messages: make(map[ID]Message)}
}

// StoreFrom builds a Store from existing entries, used when rehydrating.
func StoreFrom(entries map[ID]Message) *Store {
	s := &Store{messages: make(map[ID]Message, len(entries))}
	for id, msg := range entries {
		s.messages[id] = msg
	}
	return s
}

// Insert stores msg under a freshly generated ID and returns it.
func (s *Store) Insert(msg Message) ID {
	id := NewID()
	// uuid v4 collisions are not a practical concern, but never overwrite
	for _, taken := s.messages[id]; taken; _, taken = s.messages[id] {
		id = NewID()
	}
	s.messages[id] = msg
	return id
}

// Get returns the message stored under id.
func (s *Store) Get(id ID) (Message, bool) {
	msg, ok := s.messages[id]
	return msg, ok
}

// Contains reports whether id is present.
func (s *Store) Contains(id ID) bool {
	_, ok := s.messages[id]
	return ok
}

// AppendContent appends a streamed fragment to the content of an existing
// message. Returns ErrNotFound if id is unknown.
func (s *Store) AppendContent(id ID, delta string) error {
	msg, ok := s.messages[id]
	if !ok {
		return ErrNotFound
	}
	msg.Content += delta
	s.messages[id] = msg
	return nil
}

// Remove deletes id and returns what was stored under it.
func (s *Store) Remove(id ID) (Message, bool) {
	msg, ok := s.messages[id]
	if ok {
		delete(s.messages, id)
	}
	return msg, ok
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	return len(s.messages)
}

// Entries returns a copy of every stored message keyed by ID.
func (s *Store) Entries() map[ID]Message {
	out := make(map[ID]Message, len(s.messages))
	for id, msg := range s.messages {
		out[id] = msg
	}
	return out
}

// Clone returns a value copy of the store.
func (s *Store) Clone() *Store {
	return StoreFrom(s.messages)
}
