// Package audit records scans of tags that belong to no student.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"tagattend/internal/queue"
)

// MessageType tags unknown-tag events on the queue.
const MessageType = "unknown_tag"

// Event is one unknown-tag scan.
type Event struct {
	TagID int64  `json:"tag_id"`
	Date  string `json:"date"`
	Time  string `json:"time"`
}

// Line renders an event as a line of the audit log.
func (e Event) Line() string {
	return fmt.Sprintf("Unknown tag %d was scanned on %s at %s\n", e.TagID, e.Date, e.Time)
}

// FileSink appends audit lines to a plain text file.
type FileSink struct {
	path string
	mu   sync.Mutex
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) RecordUnknownTag(_ context.Context, tagID int64, date, clock string) error {
	return s.Write(Event{TagID: tagID, Date: date, Time: clock})
}

// Write appends one event.
func (s *FileSink) Write(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	if _, err := f.WriteString(e.Line()); err != nil {
		_ = f.Close()
		return fmt.Errorf("write audit log: %w", err)
	}
	return f.Close()
}

// QueueSink hands events to a worker through a queue, keeping file I/O off the
// request path.
type QueueSink struct {
	q queue.Queue
}

func NewQueueSink(q queue.Queue) *QueueSink {
	return &QueueSink{q: q}
}

func (s *QueueSink) RecordUnknownTag(ctx context.Context, tagID int64, date, clock string) error {
	body, err := json.Marshal(Event{TagID: tagID, Date: date, Time: clock})
	if err != nil {
		return err
	}
	return s.q.Publish(ctx, queue.Message{Type: MessageType, Body: body})
}

// Drain writes queued events to sink until msgs is closed. It returns the number
// of events written.
func Drain(msgs <-chan queue.Message, sink *FileSink, log *zap.Logger) int {
	written := 0
	for msg := range msgs {
		if msg.Type != MessageType {
			continue
		}
		var e Event
		if err := json.Unmarshal(msg.Body, &e); err != nil {
			log.Warn("skipping malformed audit event", zap.Error(err))
			continue
		}
		if err := sink.Write(e); err != nil {
			log.Error("audit write failed", zap.Int64("tag_id", e.TagID), zap.Error(err))
			continue
		}
		written++
	}
	return written
}
