package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	first := New(UserRegistered, "65f0c0ffee", "alice")
	second := New(UserRegistered, "65f0c0ffee", "alice")

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "user.registered", first.Type)
	assert.False(t, first.OccurredAt.IsZero())
}

func TestEventJSON(t *testing.T) {
	event := New(UserPasswordChanged, "65f0c0ffee", "")

	body, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "user.password_changed", decoded["type"])
	assert.Equal(t, "65f0c0ffee", decoded["userId"])
	assert.NotContains(t, decoded, "username")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}

	assert.NoError(t, p.Publish(context.Background(), New(UserRegistered, "id", "alice")))
	assert.NoError(t, p.Close())
}
