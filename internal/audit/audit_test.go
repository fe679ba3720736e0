package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tagattend/internal/queue"
)

func TestFileSinkAppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unknown.log")
	sink := NewFileSink(path)

	require.NoError(t, sink.RecordUnknownTag(context.Background(), 9999, "2024-06-01", "09:00:00"))
	require.NoError(t, sink.RecordUnknownTag(context.Background(), 17, "2024-06-01", "09:05:12"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"Unknown tag 9999 was scanned on 2024-06-01 at 09:00:00\n"+
			"Unknown tag 17 was scanned on 2024-06-01 at 09:05:12\n",
		string(data))
}

func TestFileSinkReportsOpenFailure(t *testing.T) {
	sink := NewFileSink(filepath.Join(t.TempDir(), "missing", "unknown.log"))
	assert.Error(t, sink.Write(Event{TagID: 1}))
}

func TestQueueSinkRoundTripsThroughDrain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := queue.NewInMemory(8)
	require.NoError(t, NewQueueSink(q).RecordUnknownTag(ctx, 9999, "2024-06-01", "10:00:00"))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: "other"}))
	require.NoError(t, q.Publish(ctx, queue.Message{Type: MessageType, Body: json.RawMessage(`"nope"`)}))

	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	in := make(chan queue.Message)
	go func() {
		defer close(in)
		for i := 0; i < 3; i++ {
			in <- <-msgs
		}
		cancel()
	}()

	path := filepath.Join(t.TempDir(), "unknown.log")
	written := Drain(in, NewFileSink(path), zap.NewNop())
	assert.Equal(t, 1, written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Unknown tag 9999 was scanned on 2024-06-01 at 10:00:00\n", string(data))
}

func TestQueueSinkFailsFastWhenQueueFull(t *testing.T) {
	q := queue.NewInMemory(1)
	sink := NewQueueSink(q)
	require.NoError(t, sink.RecordUnknownTag(context.Background(), 1, "2024-06-01", "10:00:00"))
	assert.ErrorIs(t, sink.RecordUnknownTag(context.Background(), 2, "2024-06-01", "10:00:01"), queue.ErrFull)
}
