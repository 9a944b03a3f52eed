package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestKafkaPublisher_Envelope(t *testing.T) {
	w := &captureWriter{}
	p := newKafkaPublisher(w, "lab-reports", quiet())
	fixed := time.Date(2024, 1, 13, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	require.NoError(t, p.Publish(context.Background(), "report.processed", map[string]interface{}{"report_id": "r-1", "tests": 4}))
	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "report.processed", ev.Type)
	assert.Equal(t, Source, ev.Source)
	assert.Equal(t, "r-1", ev.Data["report_id"])
	assert.Equal(t, float64(4), ev.Data["tests"])
	assert.True(t, fixed.Equal(ev.Timestamp))
	assert.Equal(t, ev.ID, string(msg.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "event-type", Value: []byte("report.processed")},
		{Key: "source", Value: []byte(Source)},
	}, msg.Headers)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &captureWriter{err: errors.New("broker down")}
	p := newKafkaPublisher(w, "t", quiet())
	assert.Error(t, p.Publish(context.Background(), "report.deleted", nil))
}

func TestNewKafkaPublisher_WriterSettings(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "lab-reports", quiet())
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "lab-reports", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.False(t, w.Async)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), "x", nil))
	assert.NoError(t, p.Close())
}
