package spoofer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deathmotion/antihealthindicator/internal/cache"
	"github.com/deathmotion/antihealthindicator/internal/permission"
	"github.com/deathmotion/antihealthindicator/internal/session"
	"github.com/deathmotion/antihealthindicator/pkg/protocol"
)

const (
	viewerID int32 = 100
	targetID int32 = 7
)

var idx = protocol.IndicesFor(protocol.V1_17)

func allRules() Config {
	return Config{
		AllowBypass:    true,
		Health:         true,
		AirTicks:       true,
		Absorption:     true,
		XP:             true,
		HealthTextures: true,
	}
}

func newTestSpoofer(t *testing.T, cfg Config, checker permission.Checker) (*Spoofer, *cache.EntityCache, *session.Session) {
	t.Helper()
	c := cache.NewEntityCache()
	if checker == nil {
		checker = permission.None
	}
	s, err := New(cfg, c, checker)
	require.NoError(t, err)

	v := session.New(uuid.New(), "viewer", protocol.V1_17, nil)
	v.SetEntityID(viewerID)
	return s, c, v
}

func livingFields() []protocol.Field {
	return []protocol.Field{
		{Index: idx.AirTicks, Value: protocol.Int(300)},
		{Index: idx.Health, Value: protocol.Float(20)},
	}
}

func TestRewrite_GenericLiving(t *testing.T) {
	s, c, v := newTestSpoofer(t, allRules(), nil)
	c.Put(targetID, cache.NewRecord("minecraft:zombie"))

	fields := livingFields()
	n := s.Rewrite(v, targetID, fields)

	assert.Equal(t, 2, n)
	assert.Equal(t, protocol.Int(1), fields[0].Value)
	assert.Equal(t, protocol.Float(0.5), fields[1].Value)
}

func TestRewrite_HealthFixedPoint(t *testing.T) {
	s, c, v := newTestSpoofer(t, allRules(), nil)
	c.Put(targetID, cache.NewRecord("minecraft:zombie"))

	fields := []protocol.Field{{Index: idx.Health, Value: protocol.Float(0.5)}}
	s.Rewrite(v, targetID, fields)
	assert.Equal(t, protocol.Float(0.5), fields[0].Value)
}

func TestRewrite_DeathStaysVisible(t *testing.T) {
	s, c, v := newTestSpoofer(t, allRules(), nil)
	c.Put(targetID, cache.NewRecord("minecraft:zombie"))

	fields := []protocol.Field{{Index: idx.Health, Value: protocol.Float(0)}}
	assert.Equal(t, 0, s.Rewrite(v, targetID, fields))
	assert.Equal(t, protocol.Float(0), fields[0].Value)
}

func TestRewrite_PreservesNumericKind(t *testing.T) {
	s, c, v := newTestSpoofer(t, allRules(), nil)
	c.Put(targetID, cache.NewPlayerRecord())

	tests := []struct {
		name  string
		index uint8
		in    protocol.Value
		want  protocol.Value
	}{
		{"short air", idx.AirTicks, protocol.Short(300), protocol.Short(1)},
		{"byte air", idx.AirTicks, protocol.Byte(12), protocol.Byte(1)},
		{"long air", idx.AirTicks, protocol.Long(300), protocol.Long(1)},
		{"double air", idx.AirTicks, protocol.Double(300), protocol.Double(1)},
		{"float absorption", idx.Absorption, protocol.Float(4), protocol.Float(0)},
		{"int xp", idx.XP, protocol.Int(1234), protocol.Int(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := []protocol.Field{{Index: tt.index, Value: tt.in}}
			s.Rewrite(v, targetID, fields)
			assert.Equal(t, tt.want, fields[0].Value)
			assert.Equal(t, tt.in.Kind(), fields[0].Value.Kind())
		})
	}
}

func TestRewrite_PlayerOnlyFieldsSkippedForMobs(t *testing.T) {
	s, c, v := newTestSpoofer(t, allRules(), nil)
	c.Put(targetID, cache.NewRecord("minecraft:zombie"))

	fields := []protocol.Field{
		{Index: idx.Absorption, Value: protocol.Float(4)},
		{Index: idx.XP, Value: protocol.Int(10)},
	}
	assert.Equal(t, 0, s.Rewrite(v, targetID, fields))
}

func TestRewrite_DisabledRules(t *testing.T) {
	s, c, v := newTestSpoofer(t, Config{}, nil)
	c.Put(targetID, cache.NewPlayerRecord())

	fields := append(livingFields(),
		protocol.Field{Index: idx.Absorption, Value: protocol.Float(4)},
		protocol.Field{Index: idx.XP, Value: protocol.Int(10)},
	)
	assert.Equal(t, 0, s.Rewrite(v, targetID, fields))
}

func TestRewrite_Exemptions(t *testing.T) {
	t.Run("self", func(t *testing.T) {
		s, c, v := newTestSpoofer(t, allRules(), nil)
		c.Put(viewerID, cache.NewPlayerRecord())
		assert.Equal(t, 0, s.Rewrite(v, viewerID, livingFields()))
	})

	t.Run("unknown", func(t *testing.T) {
		s, _, v := newTestSpoofer(t, allRules(), nil)
		assert.Equal(t, 0, s.Rewrite(v, targetID, livingFields()))
	})

	t.Run("boss", func(t *testing.T) {
		s, c, v := newTestSpoofer(t, allRules(), nil)
		c.Put(targetID, cache.NewRecord(protocol.TypeWither))
		c.Put(targetID+1, cache.NewRecord(protocol.TypeEnderDragon))
		assert.Equal(t, 0, s.Rewrite(v, targetID, livingFields()))
		assert.Equal(t, 0, s.Rewrite(v, targetID+1, livingFields()))
	})

	t.Run("bypass", func(t *testing.T) {
		allowed := true
		checker := permission.CheckerFunc(func(_ uuid.UUID, name string) bool {
			return allowed && name == permission.BypassPermission
		})
		s, c, v := newTestSpoofer(t, allRules(), checker)
		c.Put(targetID, cache.NewRecord("minecraft:zombie"))

		assert.Equal(t, 0, s.Rewrite(v, targetID, livingFields()))
		allowed = false
		assert.Equal(t, 2, s.Rewrite(v, targetID, livingFields()))
	})

	t.Run("bypass disabled", func(t *testing.T) {
		cfg := allRules()
		cfg.AllowBypass = false
		checker := permission.CheckerFunc(func(uuid.UUID, string) bool { return true })
		s, c, v := newTestSpoofer(t, cfg, checker)
		c.Put(targetID, cache.NewRecord("minecraft:zombie"))
		assert.Equal(t, 2, s.Rewrite(v, targetID, livingFields()))
	})

	t.Run("own vehicle", func(t *testing.T) {
		cfg := allRules()
		cfg.IgnoreVehicles = true
		s, c, v := newTestSpoofer(t, cfg, nil)
		c.Put(targetID, cache.NewRecord("minecraft:horse"))
		require.True(t, c.SetPassenger(targetID, viewerID))

		assert.Equal(t, 0, s.Rewrite(v, targetID, livingFields()))

		c.ClearPassenger(targetID)
		assert.Equal(t, 2, s.Rewrite(v, targetID, livingFields()))
	})
}

func TestRewrite_Wolves(t *testing.T) {
	owner := uuid.New()

	tests := []struct {
		name       string
		ignore     bool
		tamedOpt   bool
		ownedOpt   bool
		tamed      bool
		ownedByYou bool
		wantMasked bool
	}{
		{"option off", false, false, false, true, true, true},
		{"all wolves exempt", true, false, false, false, false, false},
		{"tamed exempt", true, true, false, true, false, false},
		{"untamed masked", true, true, false, false, false, true},
		{"owned exempt", true, false, true, true, true, false},
		{"tamed by other masked", true, false, true, true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := allRules()
			cfg.IgnoreWolves = tt.ignore
			cfg.IgnoreTamedWolves = tt.tamedOpt
			cfg.IgnoreOwnedWolves = tt.ownedOpt
			s, c, _ := newTestSpoofer(t, cfg, nil)

			v := session.New(owner, "owner", protocol.V1_17, nil)
			v.SetEntityID(viewerID)

			r := cache.NewRecord(protocol.TypeWolf)
			r.Wolf.Tamed = tt.tamed
			if tt.ownedByYou {
				r.Wolf.Owner = owner
			} else if tt.tamed {
				r.Wolf.Owner = uuid.New()
			}
			c.Put(targetID, r)

			fields := livingFields()
			n := s.Rewrite(v, targetID, fields)
			if tt.wantMasked {
				assert.Equal(t, 2, n)
			} else {
				assert.Equal(t, 0, n)
				assert.Equal(t, livingFields(), fields, "exempt wolf metadata is untouched")
			}
		})
	}
}

// Buckets are upper-exclusive (h > 74, h > 49, h > 24), so 60 maps to 74,
// 30 to 49 and 10 to 24, matching the plugin's damage texture thresholds.
func TestGolemHealth(t *testing.T) {
	in := []float32{80, 74, 60, 49, 30, 24, 10, 0, -1}
	want := []float32{100, 74, 74, 49, 49, 24, 24, 0, -1}
	for i := range in {
		assert.Equal(t, want[i], GolemHealth(in[i]), "input %v", in[i])
	}
}

func TestRewrite_IronGolem(t *testing.T) {
	golemCfg := allRules()
	golemCfg.IgnoreIronGolems = true
	golemCfg.GradualIronGolemHealth = true

	t.Run("gradual", func(t *testing.T) {
		s, c, v := newTestSpoofer(t, golemCfg, nil)
		c.Put(targetID, cache.NewRecord(protocol.TypeIronGolem))

		fields := []protocol.Field{
			{Index: idx.AirTicks, Value: protocol.Int(300)},
			{Index: idx.Health, Value: protocol.Float(60)},
		}
		s.Rewrite(v, targetID, fields)
		assert.Equal(t, protocol.Int(1), fields[0].Value)
		assert.Equal(t, protocol.Float(74), fields[1].Value)
	})

	t.Run("no health textures", func(t *testing.T) {
		cfg := golemCfg
		cfg.HealthTextures = false
		s, c, v := newTestSpoofer(t, cfg, nil)
		c.Put(targetID, cache.NewRecord(protocol.TypeIronGolem))

		fields := []protocol.Field{{Index: idx.Health, Value: protocol.Float(60)}}
		s.Rewrite(v, targetID, fields)
		assert.Equal(t, protocol.Float(0.5), fields[0].Value)
	})

	t.Run("golem option off", func(t *testing.T) {
		cfg := golemCfg
		cfg.IgnoreIronGolems = false
		s, c, v := newTestSpoofer(t, cfg, nil)
		c.Put(targetID, cache.NewRecord(protocol.TypeIronGolem))

		fields := []protocol.Field{{Index: idx.Health, Value: protocol.Float(60)}}
		s.Rewrite(v, targetID, fields)
		assert.Equal(t, protocol.Float(0.5), fields[0].Value)
	})
}

func TestRewrite_UnknownIndexUntouched(t *testing.T) {
	s, c, v := newTestSpoofer(t, allRules(), nil)
	c.Put(targetID, cache.NewPlayerRecord())

	fields := []protocol.Field{{Index: 42, Value: protocol.Float(20)}}
	assert.Equal(t, 0, s.Rewrite(v, targetID, fields))
	assert.Equal(t, protocol.Float(20), fields[0].Value)
}
