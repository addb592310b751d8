// Package spoofer masks entity status fields in outbound metadata packets.
package spoofer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/deathmotion/antihealthindicator/internal/cache"
	"github.com/deathmotion/antihealthindicator/internal/dispatcher"
	"github.com/deathmotion/antihealthindicator/internal/permission"
	"github.com/deathmotion/antihealthindicator/internal/session"
	"github.com/deathmotion/antihealthindicator/pkg/protocol"
)

const instrumentationName = "github.com/deathmotion/antihealthindicator/internal/spoofer"

// Spoofed values.
const (
	SpoofedHealth float32 = 0.5
	fullAir               = 1
	zero                  = 0
)

// Config toggles the individual rules.
type Config struct {
	AllowBypass bool

	IgnoreVehicles         bool
	IgnoreWolves           bool
	IgnoreTamedWolves      bool
	IgnoreOwnedWolves      bool
	IgnoreIronGolems       bool
	GradualIronGolemHealth bool

	Health     bool
	AirTicks   bool
	Absorption bool
	XP         bool

	// HealthTextures is set when the server version renders golem damage
	// textures.
	HealthTextures bool
}

// Spoofer rewrites metadata fields in place using cached entity state.
type Spoofer struct {
	cfg         Config
	cache       *cache.EntityCache
	permissions permission.Checker

	rewritten metric.Int64Counter
}

func New(cfg Config, c *cache.EntityCache, permissions permission.Checker) (*Spoofer, error) {
	s := &Spoofer{cfg: cfg, cache: c, permissions: permissions}

	var err error
	s.rewritten, err = otel.Meter(instrumentationName).Int64Counter(
		"spoofer.fields.rewritten",
		metric.WithDescription("Total metadata fields replaced before delivery"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rewritten counter: %w", err)
	}
	return s, nil
}

// RegisterHandlers wires the spoofer into d after the tracker.
func (s *Spoofer) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(protocol.TypeEntityMetadata, s.handleEntityMetadata)
}

func (s *Spoofer) handleEntityMetadata(e dispatcher.Event) error {
	p := e.Packet.(*protocol.EntityMetadata)
	n := s.Rewrite(e.Viewer, p.EntityID, p.Fields)
	if n > 0 {
		s.rewritten.Add(context.Background(), int64(n))
	}
	return nil
}

// Exempt reports whether the viewer holds the bypass permission while
// bypass is enabled.
func (s *Spoofer) Exempt(v session.Viewer) bool {
	return s.cfg.AllowBypass && s.permissions.HasPermission(v.UUID(), permission.BypassPermission)
}

// Rewrite masks the fields of target as seen by v and returns how many
// fields changed.
func (s *Spoofer) Rewrite(v session.Viewer, target int32, fields []protocol.Field) int {
	if target == v.EntityID() {
		return 0
	}
	if s.Exempt(v) {
		return 0
	}
	if s.cfg.IgnoreVehicles {
		if vehicle, ok := s.cache.VehicleByPassenger(v.EntityID()); ok && vehicle == target {
			return 0
		}
	}

	rec, ok := s.cache.Get(target)
	if !ok || rec.Type.IsBoss() {
		return 0
	}

	idx := protocol.IndicesFor(v.Version())

	switch rec.Kind {
	case cache.KindWolf:
		if s.cfg.IgnoreWolves && s.ignoreWolf(v, rec.Wolf) {
			return 0
		}
		return s.rewriteLiving(idx, fields)
	case cache.KindPlayer:
		return s.rewriteLiving(idx, fields) + s.rewritePlayer(idx, fields)
	case cache.KindRidable, cache.KindLiving:
		if rec.Type == protocol.TypeIronGolem && s.cfg.IgnoreIronGolems &&
			s.cfg.GradualIronGolemHealth && s.cfg.HealthTextures {
			return s.rewriteIronGolem(idx, fields)
		}
		return s.rewriteLiving(idx, fields)
	}
	return 0
}

func (s *Spoofer) ignoreWolf(v session.Viewer, w cache.WolfData) bool {
	if !s.cfg.IgnoreTamedWolves && !s.cfg.IgnoreOwnedWolves {
		return true
	}
	return (s.cfg.IgnoreTamedWolves && w.Tamed) || (s.cfg.IgnoreOwnedWolves && w.OwnedBy(v.UUID()))
}

func (s *Spoofer) rewriteLiving(idx protocol.MetadataIndices, fields []protocol.Field) int {
	n := 0
	for i := range fields {
		f := &fields[i]
		switch {
		case f.Index == idx.AirTicks && s.cfg.AirTicks:
			n += set(f, f.Value.WithNumber(fullAir))
		case f.Index == idx.Health && s.cfg.Health:
			if f.Value.Kind().Numeric() && f.Value.Float32() > 0 {
				n += set(f, f.Value.WithNumber(float64(SpoofedHealth)))
			}
		}
	}
	return n
}

func (s *Spoofer) rewritePlayer(idx protocol.MetadataIndices, fields []protocol.Field) int {
	n := 0
	for i := range fields {
		f := &fields[i]
		switch {
		case f.Index == idx.Absorption && s.cfg.Absorption:
			n += set(f, f.Value.WithNumber(zero))
		case f.Index == idx.XP && s.cfg.XP:
			n += set(f, f.Value.WithNumber(zero))
		}
	}
	return n
}

func (s *Spoofer) rewriteIronGolem(idx protocol.MetadataIndices, fields []protocol.Field) int {
	n := 0
	for i := range fields {
		f := &fields[i]
		switch {
		case f.Index == idx.AirTicks && s.cfg.AirTicks:
			n += set(f, f.Value.WithNumber(fullAir))
		case f.Index == idx.Health && s.cfg.Health:
			if f.Value.Kind().Numeric() {
				n += set(f, f.Value.WithNumber(float64(GolemHealth(f.Value.Float32()))))
			}
		}
	}
	return n
}

// GolemHealth steps health to the threshold of its damage texture.
// Non-positive health is returned unchanged.
func GolemHealth(h float32) float32 {
	switch {
	case h > 74:
		return 100
	case h > 49:
		return 74
	case h > 24:
		return 49
	case h > 0:
		return 24
	default:
		return h
	}
}

func set(f *protocol.Field, v protocol.Value) int {
	if v == f.Value {
		return 0
	}
	f.Value = v
	return 1
}
