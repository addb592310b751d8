// Package notifier tells a viewer the health of a vehicle it mounts or
// leaves, off the packet path.
package notifier

import (
	"context"

	"github.com/deathmotion/antihealthindicator/internal/cache"
	"github.com/deathmotion/antihealthindicator/internal/session"
	"github.com/deathmotion/antihealthindicator/internal/worker"
	"github.com/deathmotion/antihealthindicator/pkg/protocol"
)

// Exempter reports viewers that must not receive masked or synthetic values.
type Exempter interface {
	Exempt(v session.Viewer) bool
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Notifier sends a single-field health packet for the vehicle on every
// mount transition.
type Notifier struct {
	cache     *cache.EntityCache
	submitter worker.Submitter
	exempt    Exempter
	logger    Logger
}

func New(c *cache.EntityCache, s worker.Submitter, exempt Exempter, logger Logger) *Notifier {
	return &Notifier{cache: c, submitter: s, exempt: exempt, logger: logger}
}

// Notify schedules the packet and returns at once. The exemption and the
// vehicle health are read when the task runs.
func (n *Notifier) Notify(v session.Viewer, vehicleID int32, entering bool) {
	ok := n.submitter.Submit(func(ctx context.Context) {
		n.send(v, vehicleID, entering)
	})
	if !ok {
		n.logger.Debug("mount notification dropped", "viewer", v.Name(), "vehicle", vehicleID)
	}
}

func (n *Notifier) send(v session.Viewer, vehicleID int32, entering bool) {
	if n.exempt.Exempt(v) {
		return
	}

	health := cache.DefaultVehicleHealth
	if entering {
		health = n.cache.VehicleHealth(vehicleID)
	}

	idx := protocol.IndicesFor(v.Version())
	pkt := &protocol.EntityMetadata{
		EntityID: vehicleID,
		Fields:   []protocol.Field{{Index: idx.Health, Value: protocol.Float(health)}},
	}
	if err := v.SendPacketSilently(pkt); err != nil {
		n.logger.Error("failed to send vehicle health", "viewer", v.Name(), "vehicle", vehicleID, "error", err)
	}
}
