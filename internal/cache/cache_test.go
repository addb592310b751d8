package cache

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deathmotion/antihealthindicator/pkg/protocol"
)

const horse = protocol.EntityType("minecraft:horse")

func TestEntityCache_NewEntityCache(t *testing.T) {
	c := NewEntityCache()

	require.NotNil(t, c)
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Mounted())
}

func TestEntityCache_PutAndGet(t *testing.T) {
	c := NewEntityCache()

	c.Put(42, NewRecord(protocol.TypeWolf))

	got, ok := c.Get(42)
	require.True(t, ok, "expected to find entity 42")
	assert.Equal(t, KindWolf, got.Kind)
	assert.Equal(t, protocol.TypeWolf, got.Type)

	_, ok = c.Get(999)
	assert.False(t, ok, "expected not to find entity 999")
}

func TestEntityCache_PutOverwrites(t *testing.T) {
	c := NewEntityCache()

	c.Put(1, NewRecord(horse))
	require.True(t, c.SetPassenger(1, 7))

	c.Put(1, NewPlayerRecord())

	got, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, KindPlayer, got.Kind)
	_, mounted := got.Passenger()
	assert.False(t, mounted, "overwritten record starts unmounted")
	_, ok = c.VehicleByPassenger(7)
	assert.False(t, ok, "reverse entry of overwritten record must be released")
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindWolf, Classify(protocol.TypeWolf))
	assert.Equal(t, KindRidable, Classify(horse))
	assert.Equal(t, KindPlayer, Classify(protocol.TypePlayer))
	assert.Equal(t, KindLiving, Classify(protocol.TypeIronGolem))
}

func TestEntityCache_Update(t *testing.T) {
	c := NewEntityCache()
	owner := uuid.New()
	c.Put(5, NewRecord(protocol.TypeWolf))

	ok := c.Update(5, func(r *Record) {
		r.Wolf.Tamed = true
		r.Wolf.Owner = owner
		r.SetHealth(12)
	})
	require.True(t, ok)

	got, _ := c.Get(5)
	assert.True(t, got.Wolf.Tamed)
	assert.True(t, got.Wolf.OwnedBy(owner))
	assert.Equal(t, float32(12), got.Health())

	assert.False(t, c.Update(6, func(r *Record) { t.Fatal("must not be called for missing id") }))
}

func TestEntityCache_MountRoundTrip(t *testing.T) {
	c := NewEntityCache()
	c.Put(10, NewRecord(horse))

	require.True(t, c.SetPassenger(10, 20))

	p, ok := c.Passenger(10)
	require.True(t, ok)
	assert.Equal(t, int32(20), p)
	v, ok := c.VehicleByPassenger(20)
	require.True(t, ok)
	assert.Equal(t, int32(10), v)
	assert.Equal(t, 1, c.Mounted())

	prev, had := c.ClearPassenger(10)
	require.True(t, had)
	assert.Equal(t, int32(20), prev)

	_, ok = c.Passenger(10)
	assert.False(t, ok)
	_, ok = c.VehicleByPassenger(20)
	assert.False(t, ok, "dismount must clear the reverse index")
	assert.Equal(t, 0, c.Mounted())
}

func TestEntityCache_SetPassengerUnknownVehicle(t *testing.T) {
	c := NewEntityCache()

	assert.False(t, c.SetPassenger(1, 2))
	_, had := c.ClearPassenger(1)
	assert.False(t, had)
	_, ok := c.VehicleByPassenger(2)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestEntityCache_SetPassengerReplacesRider(t *testing.T) {
	c := NewEntityCache()
	c.Put(1, NewRecord(horse))

	c.SetPassenger(1, 2)
	c.SetPassenger(1, 3)

	_, ok := c.VehicleByPassenger(2)
	assert.False(t, ok, "previous rider must be released")
	v, ok := c.VehicleByPassenger(3)
	require.True(t, ok)
	assert.Equal(t, int32(1), v)
}

func TestEntityCache_PassengerMovesBetweenVehicles(t *testing.T) {
	c := NewEntityCache()
	c.Put(1, NewRecord(horse))
	c.Put(2, NewRecord(horse))

	c.SetPassenger(1, 9)
	c.SetPassenger(2, 9)

	_, ok := c.Passenger(1)
	assert.False(t, ok, "no two vehicles may claim the same passenger")
	v, _ := c.VehicleByPassenger(9)
	assert.Equal(t, int32(2), v)
	assert.Equal(t, 1, c.Mounted())
}

func TestEntityCache_VehicleHealth(t *testing.T) {
	c := NewEntityCache()

	assert.Equal(t, DefaultVehicleHealth, c.VehicleHealth(1), "unknown vehicle")

	c.Put(1, NewRecord(horse))
	assert.Equal(t, DefaultVehicleHealth, c.VehicleHealth(1), "health never observed")

	c.Update(1, func(r *Record) { r.SetHealth(22) })
	assert.Equal(t, float32(22), c.VehicleHealth(1))
}

func TestEntityCache_RemoveVehicle(t *testing.T) {
	c := NewEntityCache()
	c.Put(1, NewRecord(horse))
	c.SetPassenger(1, 2)

	c.Remove(1)

	_, ok := c.Get(1)
	assert.False(t, ok)
	_, ok = c.VehicleByPassenger(2)
	assert.False(t, ok)
}

func TestEntityCache_RemovePassenger(t *testing.T) {
	c := NewEntityCache()
	c.Put(1, NewRecord(horse))
	c.Put(2, NewPlayerRecord())
	c.SetPassenger(1, 2)

	c.Remove(2, 404)

	_, ok := c.Passenger(1)
	assert.False(t, ok, "vehicle of a despawned passenger is unmounted")
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.Mounted())
}

func TestEntityCache_Reset(t *testing.T) {
	c := NewEntityCache()
	c.Put(1, NewRecord(horse))
	c.Put(2, NewPlayerRecord())
	c.SetPassenger(1, 2)

	c.Reset()

	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Mounted())

	c.Put(3, NewPlayerRecord())
	_, ok := c.Get(3)
	assert.True(t, ok, "expected to find entity added after reset")
}

func TestEntityCache_Concurrent(t *testing.T) {
	c := NewEntityCache()
	var wg sync.WaitGroup

	for i := int32(0); i < 100; i++ {
		c.Put(i, NewRecord(horse))
	}

	for i := int32(0); i < 100; i++ {
		wg.Add(3)
		go func(id int32) {
			defer wg.Done()
			c.SetPassenger(id, 1000+id%10)
		}(i)
		go func(id int32) {
			defer wg.Done()
			c.ClearPassenger(id)
		}(i)
		go func(id int32) {
			defer wg.Done()
			c.VehicleByPassenger(1000 + id%10)
			c.Get(id)
		}(i)
	}
	wg.Wait()

	// Forward and reverse maps must agree after concurrent churn.
	for p := int32(1000); p < 1010; p++ {
		v, ok := c.VehicleByPassenger(p)
		if !ok {
			continue
		}
		got, mounted := c.Passenger(v)
		require.True(t, mounted, "reverse entry %d -> %d without forward relation", p, v)
		assert.Equal(t, p, got)
	}
	mounted := 0
	for v := int32(0); v < 100; v++ {
		if p, ok := c.Passenger(v); ok {
			mounted++
			owner, ok := c.VehicleByPassenger(p)
			require.True(t, ok)
			assert.Equal(t, v, owner)
		}
	}
	assert.Equal(t, c.Mounted(), mounted)
}

func TestEntityCache_ClearPassengerEmptyVehicle(t *testing.T) {
	c := NewEntityCache()
	c.Put(1, NewRecord(horse))

	_, had := c.ClearPassenger(1)
	assert.False(t, had)

	c.SetPassenger(1, 2)
	prev, had := c.ClearPassenger(1)
	assert.True(t, had)
	assert.Equal(t, int32(2), prev)

	_, had = c.ClearPassenger(1)
	assert.False(t, had, "a second clear finds nobody")
}

func TestEntityCache_Dismount(t *testing.T) {
	c := NewEntityCache()
	c.Put(1, NewRecord(horse))
	require.True(t, c.SetPassenger(1, 2))

	v, ok := c.Dismount(2)
	require.True(t, ok)
	assert.Equal(t, int32(1), v)

	_, mounted := c.Passenger(1)
	assert.False(t, mounted)
	assert.Equal(t, 0, c.Mounted())

	_, ok = c.Dismount(2)
	assert.False(t, ok)
}
