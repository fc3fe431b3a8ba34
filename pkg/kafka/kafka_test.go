package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeReader struct {
	messages  []kafka.Message
	committed []kafka.Message
	closed    bool
	cancel    context.CancelFunc
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.messages) == 0 {
		f.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := f.messages[0]
	f.messages = f.messages[1:]
	return msg, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeReader) Close() error {
	f.closed = true
	return nil
}

func TestProducerPublish(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "claims")

	require.NoError(t, p.Publish(context.Background(), Event{Key: "c1", Value: map[string]int{"n": 1}}))
	require.Len(t, w.messages, 1)
	assert.Equal(t, []byte("c1"), w.messages[0].Key)
	assert.JSONEq(t, `{"n":1}`, string(w.messages[0].Value))

	w.err = errors.New("broker down")
	assert.ErrorContains(t, p.Publish(context.Background(), Event{Key: "c2", Value: 1}), "publishing to kafka")
}

func TestProducerRejectsUnencodableValue(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, "claims")
	err := p.Publish(context.Background(), Event{Key: "x", Value: make(chan int)})
	assert.Error(t, err)
}

func TestConsumerCommitsOnlyHandledMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := &fakeReader{
		messages: []kafka.Message{
			{Key: []byte("ok"), Value: []byte(`{}`)},
			{Key: []byte("bad"), Value: []byte(`{}`)},
		},
		cancel: cancel,
	}
	var handled []string
	c := NewConsumerWithReader(r, "claims", func(_ context.Context, key, _ []byte) error {
		handled = append(handled, string(key))
		if string(key) == "bad" {
			return errors.New("rejected")
		}
		return nil
	})

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, []string{"ok", "bad"}, handled)
	require.Len(t, r.committed, 1)
	assert.Equal(t, []byte("ok"), r.committed[0].Key)
	assert.True(t, r.closed)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		N int `json:"n"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"n":4}`))
	require.NoError(t, err)
	assert.Equal(t, 4, got.N)

	_, err = DecodeJSON[payload]([]byte(`{`))
	assert.Error(t, err)
}
