package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope("rfq-adapter", "evt.rfq.discovered.v1", EventRFQDiscovered, map[string]any{"id": 42})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, env.ID)
	assert.NotEqual(t, env.ID, env.CorrelationID)
	assert.Equal(t, "rfq.discovered", env.EventType)
	assert.Equal(t, "UTC", env.Timestamp.Location().String())
	assert.JSONEq(t, `{"id":42}`, string(env.Payload))
}

func TestNewEnvelope_MarshalError(t *testing.T) {
	_, err := NewEnvelope("rfq-adapter", "t", EventRFQCreated, make(chan int))
	require.Error(t, err)

	var ute *json.UnsupportedTypeError
	assert.ErrorAs(t, err, &ute)
}
