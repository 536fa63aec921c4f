package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OpenTelemetry instruments of the event stream. A nil
// *Metrics records nothing.
type Metrics struct {
	connectionsTotal   metric.Int64Counter
	connectionsActive  metric.Int64UpDownCounter
	connectionDuration metric.Float64Histogram
	messagesSent       metric.Int64Counter
	messageBytes       metric.Int64Counter
	droppedMessages    metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)
	counter := func(dst *metric.Int64Counter, name, desc string) {
		if err != nil {
			return
		}
		*dst, err = meter.Int64Counter(name, metric.WithDescription(desc))
	}

	counter(&m.connectionsTotal, "websocket_connections_total", "Total number of WebSocket connections")
	counter(&m.messagesSent, "websocket_messages_sent_total", "WebSocket messages delivered to clients, by type")
	counter(&m.messageBytes, "websocket_message_bytes_total", "Bytes written to WebSocket clients")
	counter(&m.droppedMessages, "websocket_dropped_messages_total", "Messages dropped because a queue was full")
	if err == nil {
		m.connectionsActive, err = meter.Int64UpDownCounter("websocket_connections_active",
			metric.WithDescription("Number of active WebSocket connections"))
	}
	if err == nil {
		m.connectionDuration, err = meter.Float64Histogram("websocket_connection_duration_seconds",
			metric.WithDescription("Duration of WebSocket connections"),
			metric.WithUnit("s"))
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) recordConnection(ctx context.Context) {
	if m == nil {
		return
	}
	m.connectionsTotal.Add(ctx, 1)
	m.connectionsActive.Add(ctx, 1)
}

func (m *Metrics) recordDisconnection(ctx context.Context, d time.Duration, reason string) {
	if m == nil {
		return
	}
	m.connectionsActive.Add(ctx, -1)
	m.connectionDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) recordSent(ctx context.Context, size int) {
	if m == nil {
		return
	}
	m.messagesSent.Add(ctx, 1)
	m.messageBytes.Add(ctx, int64(size))
}

func (m *Metrics) recordDropped(ctx context.Context, queue string) {
	if m == nil {
		return
	}
	m.droppedMessages.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", queue)))
}
