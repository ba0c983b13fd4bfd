package tasks

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	values := map[string]interface{}{
		"type":         TaskFilesCleanup,
		"requested_at": "2026-08-20T04:00:00Z",
	}

	var payload TaskPayload
	require.NoError(t, decodePayload(values, &payload))
	require.Equal(t, TaskFilesCleanup, payload.Type)
	require.Equal(t, "2026-08-20T04:00:00Z", payload.RequestedAt)
}

func TestDecodePayload_WrongShape(t *testing.T) {
	var payload TaskPayload
	err := decodePayload(map[string]interface{}{"type": 42}, &payload)
	require.Error(t, err)
}

// Unknown task types are logged and acknowledged, not retried forever.
func TestHandle_UnknownTypeIgnored(t *testing.T) {
	p := NewProcessor(nil, nil, nil, nil, 0, zerolog.Nop())

	msg := redis.XMessage{
		ID:     "1-0",
		Values: map[string]interface{}{"type": "reindex_everything"},
	}
	require.NoError(t, p.Handle(context.Background(), msg))
}

func TestHandle_MalformedPayload(t *testing.T) {
	p := NewProcessor(nil, nil, nil, nil, 0, zerolog.Nop())

	msg := redis.XMessage{
		ID:     "1-1",
		Values: map[string]interface{}{"type": 42},
	}
	require.Error(t, p.Handle(context.Background(), msg))
}
