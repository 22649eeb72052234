package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestKafkaMessageConversion(t *testing.T) {
	msg := toKafka([]byte("export-7"), []byte(`{"exportacion_id":7}`), map[string]string{
		HeaderEventType: "export.committed",
	})
	assert.Empty(t, msg.Topic)
	require.Len(t, msg.Headers, 1)

	msg.Topic = "florex.events"
	msg.Offset = 42
	msg.Time = time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	got := fromKafka(msg)

	assert.Equal(t, "florex.events", got.Topic)
	assert.Equal(t, []byte("export-7"), got.Key)
	assert.JSONEq(t, `{"exportacion_id":7}`, string(got.Value))
	assert.Equal(t, "export.committed", got.Headers[HeaderEventType])
	assert.EqualValues(t, 42, got.Offset)

	msg.Value[0] = 'X'
	assert.Equal(t, byte('{'), got.Value[0], "fetched payload must be copied")
}

func TestFromKafkaWithoutHeaders(t *testing.T) {
	got := fromKafka(kafka.Message{Value: []byte("x")})
	assert.Nil(t, got.Headers)
}

func TestHeaderCarrierPropagatesTraceContext(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03},
		SpanID:     trace.SpanID{0x04, 0x05},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	prop := propagation.TraceContext{}

	carrier := HeaderCarrier{HeaderEventType: "export.committed"}
	prop.Inject(ctx, carrier)
	assert.Contains(t, carrier.Keys(), "traceparent")

	decoded := fromKafka(toKafka(nil, nil, carrier))
	extracted := trace.SpanContextFromContext(prop.Extract(context.Background(), HeaderCarrier(decoded.Headers)))
	assert.Equal(t, sc.TraceID(), extracted.TraceID())
	assert.Equal(t, sc.SpanID(), extracted.SpanID())
	assert.Equal(t, "export.committed", decoded.Headers[HeaderEventType])
}
