package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope("evt.whatsapp.text.v1", EventTextReceived, TextMessageEvent{
		MessageID: "wamid.1",
		From:      Sender{Phone: "6584373362", Name: "Ana"},
		Body:      "show me the catalog",
		Intent:    "catalog_request",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, env.ID)
	assert.NotEqual(t, env.ID, env.CorrelationID)
	assert.Equal(t, "1.0.0", env.Version)
	assert.Equal(t, EventTextReceived, env.EventType)

	var got TextMessageEvent
	require.NoError(t, json.Unmarshal(env.Payload, &got))
	assert.Equal(t, "wamid.1", got.MessageID)
	assert.Equal(t, "Ana", got.From.Name)
}

func TestProductPatch_Empty(t *testing.T) {
	assert.True(t, ProductPatch{}.Empty())

	name := "Mug"
	assert.False(t, ProductPatch{Name: &name}.Empty())
}
