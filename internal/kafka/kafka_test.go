package kafka

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-calendar/internal/logger"
)

type fakeWriter struct {
	mu       sync.Mutex
	errs     []error
	messages []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.errs) > 0 {
		err := w.errs[0]
		w.errs = w.errs[1:]
		if err != nil {
			return err
		}
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishWritesKeyedMessage(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{Writer: w, Logger: logger.NewWithWriter(io.Discard)}

	require.NoError(t, p.Publish(context.Background(), "calendar.event.created", "evt-1", []byte(`{"id":"evt-1"}`)))
	require.Len(t, w.messages, 1)
	assert.Equal(t, "calendar.event.created", w.messages[0].Topic)
	assert.Equal(t, "evt-1", string(w.messages[0].Key))
	assert.JSONEq(t, `{"id":"evt-1"}`, string(w.messages[0].Value))
}

func TestPublishCreatesMissingTopicAndRetries(t *testing.T) {
	w := &fakeWriter{errs: []error{kafka.WriteErrors{kafka.UnknownTopicOrPartition}}}
	var created []string
	p := &Producer{
		Writer: w,
		CreateTopic: func(_ context.Context, topic string) error {
			created = append(created, topic)
			return nil
		},
		Logger: logger.NewWithWriter(io.Discard),
	}

	require.NoError(t, p.Publish(context.Background(), "calendar.event.created", "evt-1", []byte("{}")))
	assert.Equal(t, []string{"calendar.event.created"}, created)
	assert.Len(t, w.messages, 1)
}

func TestPublishOtherErrorsAreReturned(t *testing.T) {
	boom := errors.New("broker down")
	w := &fakeWriter{errs: []error{boom}}
	called := false
	p := &Producer{
		Writer:      w,
		CreateTopic: func(context.Context, string) error { called = true; return nil },
		Logger:      logger.NewWithWriter(io.Discard),
	}

	err := p.Publish(context.Background(), "t", "k", nil)
	assert.ErrorIs(t, err, boom)
	assert.False(t, called)
	assert.Empty(t, w.messages)
}

type fakeReader struct {
	msgs []kafka.Message
	err  error
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if r.err != nil {
		err := r.err
		r.err = nil
		return kafka.Message{}, err
	}
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumerDeliversUntilReaderCloses(t *testing.T) {
	var buf bytes.Buffer
	reader := &fakeReader{
		err: errors.New("transient"),
		msgs: []kafka.Message{
			{Topic: "calendar.event.created", Key: []byte("a"), Value: []byte("1")},
			{Topic: "calendar.event.created", Key: []byte("b"), Value: []byte("2")},
		},
	}
	c := &Consumer{Reader: reader, Logger: logger.NewWithWriter(&buf)}

	var keys []string
	err := c.Start(context.Background(), func(_ context.Context, key string, value []byte) error {
		keys = append(keys, key)
		if key == "a" {
			return errors.New("bad payload")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
	assert.Contains(t, buf.String(), "transient")
	assert.Contains(t, buf.String(), "bad payload")
}

func TestTopicHelpersNeedBrokers(t *testing.T) {
	log := logger.NewWithWriter(io.Discard)
	assert.Error(t, EnsureTopicsExist(context.Background(), nil, []string{"t"}, log))
	_, err := ListTopics(context.Background(), nil)
	assert.Error(t, err)
}
