// Package messagingtest provides a recording messaging.Client for tests.
package messagingtest

import (
	"context"
	"sync"

	"github.com/Additional-Code/florex/internal/messaging"
)

// Recorder stores every published message in memory.
type Recorder struct {
	mu       sync.Mutex
	topic    string
	messages []messaging.Message
	// PublishErr, when set, is returned by Publish after recording.
	PublishErr error
}

var _ messaging.Client = (*Recorder)(nil)

// NewRecorder returns a Recorder reporting topic.
func NewRecorder(topic string) *Recorder {
	return &Recorder{topic: topic}
}

func (r *Recorder) Publish(_ context.Context, key []byte, value []byte, headers map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, messaging.Message{
		Topic:   r.topic,
		Key:     append([]byte(nil), key...),
		Value:   append([]byte(nil), value...),
		Headers: headers,
		Offset:  int64(len(r.messages)),
	})
	return r.PublishErr
}

// Consume blocks until ctx is done.
func (r *Recorder) Consume(ctx context.Context, _ messaging.Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (r *Recorder) Topic() string { return r.topic }

// Messages returns a copy of everything published so far.
func (r *Recorder) Messages() []messaging.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]messaging.Message(nil), r.messages...)
}
