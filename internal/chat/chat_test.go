// ABOUTME: Tests for the Chat aggregate
// ABOUTME: Covers default construction, enumeration, context, validation, and forking

package chat

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chorus/internal/agent"
	"github.com/2389/coven-chorus/internal/message"
)

func TestDefaultWithAgents(t *testing.T) {
	c, configs := DefaultWithAgents(DefaultPersonas())

	users := slices.Collect(c.UserAgentIDs())
	assistants := slices.Collect(c.AssistantAgentIDs())
	require.Len(t, users, 1)
	require.Len(t, assistants, 2)
	assert.Len(t, slices.Collect(c.AgentIDs()), 3)

	// one config per assistant persona plus the user
	require.Len(t, configs, 3)
	assert.Contains(t, configs, agent.Named("Alice"))
	assert.Contains(t, configs, agent.Named("Bob"))
	assert.Contains(t, configs, agent.UserDefault())

	user := c.Agents[users[0]]
	assert.Empty(t, user.History)

	// each assistant sees only its own system prompt
	for _, id := range assistants {
		a := c.Agents[id]
		require.Len(t, a.History, 1)
		msg, ok := c.Messages.Get(a.History[0])
		require.True(t, ok)
		assert.Equal(t, message.RoleSystem, msg.Role)
		assert.Equal(t, a.Config.SystemPrompt, msg.Content)
	}
	assert.NotEqual(t,
		c.Agents[assistants[0]].History[0],
		c.Agents[assistants[1]].History[0])
	assert.Equal(t, 2, c.Messages.Len())

	require.NoError(t, c.Validate())
}

func TestDefaultWithAgents_NoPersonas(t *testing.T) {
	c, configs := DefaultWithAgents(nil)
	assert.Len(t, slices.Collect(c.UserAgentIDs()), 1)
	assert.Empty(t, slices.Collect(c.AssistantAgentIDs()))
	assert.Len(t, configs, 1)
}

func TestSoleUser_Cardinality(t *testing.T) {
	c := New("t")
	_, err := c.SoleUser()
	assert.ErrorIs(t, err, ErrUserCardinality)

	c.Add(agent.NewUser(agent.UserDefault()))
	u, err := c.SoleUser()
	require.NoError(t, err)
	assert.NotNil(t, u)

	c.Add(agent.NewUser(agent.Named("Eve")))
	_, err = c.SoleUser()
	assert.ErrorIs(t, err, ErrUserCardinality)
}

func TestContext_FollowsOwnHistory(t *testing.T) {
	c, _ := DefaultWithAgents(DefaultPersonas())
	user, err := c.SoleUser()
	require.NoError(t, err)

	hello := c.Messages.Insert(user.Compose("hello"))
	c.Broadcast(hello)

	for id := range c.AssistantAgentIDs() {
		msgs, err := c.Context(id)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, message.RoleSystem, msgs[0].Role)
		assert.Equal(t, "hello", msgs[1].Content)
	}
}

func TestContext_DanglingReference(t *testing.T) {
	c, _ := DefaultWithAgents(DefaultPersonas())
	id := slices.Collect(c.AssistantAgentIDs())[0]
	c.Agents[id].Push(message.NewID())

	_, err := c.Context(id)
	assert.ErrorIs(t, err, ErrDanglingReference)
	assert.ErrorIs(t, c.Validate(), ErrDanglingReference)
}

func TestContext_UnknownAgent(t *testing.T) {
	c := New("")
	_, err := c.Context(agent.NewID())
	assert.ErrorIs(t, err, agent.ErrNotFound)
}

func TestClone_IsFork(t *testing.T) {
	c, _ := DefaultWithAgents(DefaultPersonas())
	user, _ := c.SoleUser()
	c.Broadcast(c.Messages.Insert(user.Compose("hi")))

	f := c.Clone()
	assert.NotEqual(t, c.ID, f.ID)
	assert.False(t, f.CreatedAt.Before(c.CreatedAt))
	assert.Equal(t, c.Topic, f.Topic)
	assert.Equal(t, c.Messages.Entries(), f.Messages.Entries())

	for id, a := range c.Agents {
		require.Contains(t, f.Agents, id)
		assert.Equal(t, a.History, f.Agents[id].History)
	}

	// mutations do not leak back
	fu, _ := f.SoleUser()
	fu.Push(f.Messages.Insert(fu.Compose("only in fork")))
	assert.NotEqual(t, len(user.History), len(fu.History))
	assert.NotEqual(t, c.Messages.Len(), f.Messages.Len())
}

func TestFromConfigs(t *testing.T) {
	_, configs := DefaultWithAgents(DefaultPersonas())

	c, err := FromConfigs("Second", configs)
	require.NoError(t, err)
	assert.Equal(t, "Second", c.Topic)
	assert.Len(t, slices.Collect(c.AssistantAgentIDs()), 2)
	require.NoError(t, c.Validate())

	delete(configs, agent.UserDefault())
	_, err = FromConfigs("", configs)
	assert.ErrorIs(t, err, ErrUserCardinality)
}

func TestParseID(t *testing.T) {
	id := NewID()
	got, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
