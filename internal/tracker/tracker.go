// Package tracker builds the entity cache from outbound packet traffic.
package tracker

import (
	"slices"

	"github.com/deathmotion/antihealthindicator/internal/cache"
	"github.com/deathmotion/antihealthindicator/internal/dispatcher"
	"github.com/deathmotion/antihealthindicator/internal/session"
	"github.com/deathmotion/antihealthindicator/pkg/protocol"
)

// Notifier is told about mount transitions seen by a viewer.
type Notifier interface {
	Notify(v session.Viewer, vehicleID int32, entering bool)
}

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
}

// Config selects what gets tracked.
type Config struct {
	// PlayersOnly limits tracking to the viewer's own join packet.
	PlayersOnly bool
}

// Tracker keeps the cache in step with spawn, metadata, mount and despawn
// packets. All handlers return nil: misses are expected for entities the
// type filter skipped.
type Tracker struct {
	cache    *cache.EntityCache
	notifier Notifier
	cfg      Config
	logger   Logger
}

func New(c *cache.EntityCache, n Notifier, cfg Config, logger Logger) *Tracker {
	return &Tracker{cache: c, notifier: n, cfg: cfg, logger: logger}
}

// RegisterHandlers wires the tracker into d. It must run before any handler
// that masks metadata so the real values are cached first.
func (t *Tracker) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(protocol.TypeJoinGame, t.handleJoinGame)
	if t.cfg.PlayersOnly {
		t.logger.Debug("tracker running in players-only mode")
		return
	}
	d.Register(protocol.TypeSpawnLivingEntity, t.handleSpawnLivingEntity)
	d.Register(protocol.TypeSpawnEntity, t.handleSpawnEntity)
	d.Register(protocol.TypeEntityMetadata, t.handleEntityMetadata)
	d.Register(protocol.TypeSetPassengers, t.handleSetPassengers)
	d.Register(protocol.TypeAttachEntity, t.handleAttachEntity)
	d.Register(protocol.TypeDestroyEntities, t.handleDestroyEntities)
}

func (t *Tracker) handleJoinGame(e dispatcher.Event) error {
	p := e.Packet.(*protocol.JoinGame)
	t.cache.Put(p.EntityID, cache.NewPlayerRecord())
	return nil
}

func (t *Tracker) handleSpawnLivingEntity(e dispatcher.Event) error {
	p := e.Packet.(*protocol.SpawnLivingEntity)
	t.cache.Put(p.EntityID, cache.NewRecord(p.EntityType))
	return nil
}

func (t *Tracker) handleSpawnEntity(e dispatcher.Event) error {
	p := e.Packet.(*protocol.SpawnEntity)
	if !p.EntityType.IsLiving() {
		return nil
	}
	t.cache.Put(p.EntityID, cache.NewRecord(p.EntityType))
	return nil
}

func (t *Tracker) handleEntityMetadata(e dispatcher.Event) error {
	p := e.Packet.(*protocol.EntityMetadata)
	idx := protocol.IndicesFor(e.Viewer.Version())

	t.cache.Update(p.EntityID, func(r *cache.Record) {
		for _, f := range p.Fields {
			applyField(r, idx, f)
		}
	})
	return nil
}

func applyField(r *cache.Record, idx protocol.MetadataIndices, f protocol.Field) {
	if f.Index == idx.Health && f.Value.Kind() == protocol.KindFloat {
		r.SetHealth(f.Value.Float32())
	}

	if r.Kind != cache.KindWolf {
		return
	}
	switch f.Index {
	case idx.TameFlags:
		if f.Value.Kind().Numeric() {
			r.Wolf.Tamed = f.Value.Int64()&protocol.TamedBit != 0
		}
	case idx.Owner:
		switch f.Value.Kind() {
		case protocol.KindOptUUID, protocol.KindString:
			// an absent or blank owner reads as uuid.Nil and clears it
			id, _ := f.Value.UUID()
			r.Wolf.Owner = id
		}
	}
}

// The cache holds one rider per vehicle for every viewer, so whether this
// viewer left its vehicle is decided from the session's own mount state.
func (t *Tracker) handleSetPassengers(e dispatcher.Event) error {
	p := e.Packet.(*protocol.SetPassengers)
	viewerID := e.Viewer.EntityID()
	if p.VehicleID == viewerID {
		return nil
	}

	if len(p.Passengers) > 0 {
		t.mount(e.Viewer, p.VehicleID, p.Passengers[0], slices.Contains(p.Passengers, viewerID))
		return nil
	}

	t.cache.ClearPassenger(p.VehicleID)
	if e.Viewer.LeaveVehicle(p.VehicleID) {
		t.notifier.Notify(e.Viewer, p.VehicleID, false)
	}
	return nil
}

func (t *Tracker) handleAttachEntity(e dispatcher.Event) error {
	p := e.Packet.(*protocol.AttachEntity)
	if p.Leash {
		return nil
	}
	viewerID := e.Viewer.EntityID()
	if p.HoldingID == viewerID {
		return nil
	}

	if p.HoldingID > 0 {
		t.mount(e.Viewer, p.HoldingID, p.AttachedID, p.AttachedID == viewerID)
		return nil
	}

	// Detach packets carry no vehicle id.
	t.cache.Dismount(p.AttachedID)
	if p.AttachedID != viewerID {
		return nil
	}
	if vehicleID, ok := e.Viewer.Vehicle(); ok && e.Viewer.LeaveVehicle(vehicleID) {
		t.notifier.Notify(e.Viewer, vehicleID, false)
	}
	return nil
}

// mount records rider on vehicleID. A viewer pushed off the vehicle by
// another rider is told it left.
func (t *Tracker) mount(v session.Viewer, vehicleID, rider int32, viewerRides bool) {
	if !t.cache.SetPassenger(vehicleID, rider) {
		return
	}
	if viewerRides {
		v.SetVehicle(vehicleID)
	} else if v.LeaveVehicle(vehicleID) {
		t.notifier.Notify(v, vehicleID, false)
	}
	t.notifier.Notify(v, vehicleID, true)
}

func (t *Tracker) handleDestroyEntities(e dispatcher.Event) error {
	p := e.Packet.(*protocol.DestroyEntities)
	t.cache.Remove(p.EntityIDs...)
	if vehicleID, ok := e.Viewer.Vehicle(); ok && slices.Contains(p.EntityIDs, vehicleID) {
		e.Viewer.LeaveVehicle(vehicleID)
	}
	return nil
}
