package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	payload := map[string]string{"token_id": "t-1"}

	event, err := NewEvent("refresh_reuse_detected", "u-1", "identity", "identity-service", payload)
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, "refresh_reuse_detected", event.EventType)
	assert.Equal(t, "u-1", event.AggregateID)
	assert.Equal(t, 1, event.Version)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	event, err := NewEvent("logout", "u-1", "identity", "identity-service", map[string]string{"scope": "all_sessions"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-1")

	data, err := event.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, event.EventID, decoded.EventID)
	assert.Equal(t, "corr-1", decoded.CorrelationID)

	var payload map[string]string
	require.NoError(t, decoded.UnmarshalData(&payload))
	assert.Equal(t, "all_sessions", payload["scope"])
}
