// ABOUTME: Tests for the message Store
// ABOUTME: Covers insert/get/remove, streamed appends, and ID parsing

package message

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InsertGet(t *testing.T) {
	s := NewStore()

	id := s.Insert(User("hello", "Ada"))
	require.False(t, id.IsZero())

	msg, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, RoleUser, msg.Role)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "Ada", msg.Name)
}

func TestStore_InsertGeneratesDistinctIDs(t *testing.T) {
	s := NewStore()
	seen := make(map[ID]bool)
	for i := 0; i < 100; i++ {
		id := s.Insert(System("x"))
		assert.False(t, seen[id], "id reused")
		seen[id] = true
	}
	assert.Equal(t, 100, s.Len())
}

func TestStore_GetMissing(t *testing.T) {
	s := NewStore()
	_, ok := s.Get(NewID())
	assert.False(t, ok)
}

func TestStore_AppendContent_ConcatenatesInOrder(t *testing.T) {
	s := NewStore()
	id := s.Insert(Assistant("", "Bob"))

	deltas := []string{"Hel", "lo", ", ", "wor", "ld", ""}
	for _, d := range deltas {
		require.NoError(t, s.AppendContent(id, d))
	}

	msg, _ := s.Get(id)
	assert.Equal(t, strings.Join(deltas, ""), msg.Content)
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "Bob", msg.Name)
}

func TestStore_AppendContent_Missing(t *testing.T) {
	s := NewStore()
	err := s.AppendContent(NewID(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	id := s.Insert(User("bye", ""))

	msg, ok := s.Remove(id)
	require.True(t, ok)
	assert.Equal(t, "bye", msg.Content)
	assert.False(t, s.Contains(id))

	_, ok = s.Remove(id)
	assert.False(t, ok)
}

func TestStore_CloneIsIndependent(t *testing.T) {
	s := NewStore()
	id := s.Insert(Assistant("a", ""))

	c := s.Clone()
	require.NoError(t, c.AppendContent(id, "b"))

	orig, _ := s.Get(id)
	cloned, _ := c.Get(id)
	assert.Equal(t, "a", orig.Content)
	assert.Equal(t, "ab", cloned.Content)
}

func TestParseID_RoundTrip(t *testing.T) {
	id := NewID()
	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseID("not-a-uuid")
	assert.Error(t, err)
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleSystem.Valid())
	assert.True(t, RoleUser.Valid())
	assert.True(t, RoleAssistant.Valid())
	assert.False(t, Role("function").Valid())
}
