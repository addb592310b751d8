package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/deathmotion/antihealthindicator/internal/session"
	"github.com/deathmotion/antihealthindicator/pkg/protocol"
)

// Event is one outbound packet on its way to a viewer.
type Event struct {
	Viewer    session.Viewer
	Packet    protocol.Packet
	Timestamp time.Time
}

// HandlerFunc processes an event. Handlers may mutate the packet in place.
type HandlerFunc func(Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithTrace logs every handler invocation, as Logged does per handler.
func WithTrace(on bool) DispatcherOption {
	return func(d *Dispatcher) {
		d.trace = on
	}
}

// Dispatcher routes packets to the handlers registered for their type.
// Handlers for one type run synchronously in registration order on the
// caller's goroutine, so a connection's packets keep their issue order.
// Registration must finish before the first Dispatch.
type Dispatcher struct {
	handlers map[protocol.PacketType][]HandlerFunc
	logger   Logger
	trace    bool

	processed metric.Int64Counter
	failed    metric.Int64Counter
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[protocol.PacketType][]HandlerFunc),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(d)
	}

	m := meter()

	var err error
	d.processed, err = m.Int64Counter(
		"dispatcher.packets.processed",
		metric.WithDescription("Total packets routed to at least one handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.handlers.failed",
		metric.WithDescription("Total handler invocations that returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register appends a handler for the given packet type.
func (d *Dispatcher) Register(t protocol.PacketType, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if cfg.logged || d.trace {
		handler = d.withLogging(t, handler)
	}

	d.handlers[t] = append(d.handlers[t], handler)
}

// Dispatch runs every handler registered for the event's packet type. A
// failing handler does not stop the chain; the first error is returned.
// Packets with no handler pass through untouched.
func (d *Dispatcher) Dispatch(e Event) error {
	chain, ok := d.handlers[e.Packet.PacketType()]
	if !ok {
		return nil
	}

	attrs := metric.WithAttributes(attribute.String("packet", string(e.Packet.PacketType())))
	var first error
	for _, h := range chain {
		if err := h(e); err != nil {
			d.failed.Add(context.Background(), 1, attrs)
			if first == nil {
				first = err
			}
		}
	}
	d.processed.Add(context.Background(), 1, attrs)
	return first
}

// HasHandler returns true if a handler is registered for the packet type.
func (d *Dispatcher) HasHandler(t protocol.PacketType) bool {
	_, ok := d.handlers[t]
	return ok
}

func (d *Dispatcher) withLogging(t protocol.PacketType, h HandlerFunc) HandlerFunc {
	return func(e Event) error {
		start := time.Now()
		d.logger.Debug("handling packet", "packet", t, "viewer", e.Viewer.Name())

		err := h(e)

		if err != nil {
			d.logger.Error("packet handler failed", "packet", t, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("packet handled", "packet", t, "duration", time.Since(start))
		}

		return err
	}
}
