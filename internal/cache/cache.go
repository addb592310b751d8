package cache

import (
	"sync"
)

// EntityCache caches entity state learned from outbound traffic together with a
// reverse passenger -> vehicle index. Entity ids are server-global, so a single
// cache is shared by every viewer session. One lock guards both maps; every
// method leaves them consistent when it returns.
type EntityCache struct {
	mu         sync.RWMutex
	entities   map[int32]Record
	passengers map[int32]int32
}

func NewEntityCache() *EntityCache {
	return &EntityCache{
		entities:   make(map[int32]Record),
		passengers: make(map[int32]int32),
	}
}

// Reset drops all cached state.
func (c *EntityCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities = make(map[int32]Record)
	c.passengers = make(map[int32]int32)
}

// Put inserts or overwrites the record for id. The new record starts with no
// passenger; a relation owned by the overwritten record is released.
func (c *EntityCache) Put(id int32, r Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entities[id]; ok {
		c.releaseLocked(id, old)
	}
	r.passenger, r.mounted = 0, false
	c.entities[id] = r
}

func (c *EntityCache) Get(id int32) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entities[id]
	return r, ok
}

// Update applies fn to the record for id in place. It returns false if id is not cached.
func (c *EntityCache) Update(id int32, fn func(*Record)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entities[id]
	if !ok {
		return false
	}
	passenger, mounted := r.passenger, r.mounted
	fn(&r)
	r.passenger, r.mounted = passenger, mounted
	c.entities[id] = r
	return true
}

// Remove evicts the given entities. A removed vehicle releases its passenger
// and a removed passenger is cleared from the vehicle it was riding.
func (c *EntityCache) Remove(ids ...int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if r, ok := c.entities[id]; ok {
			c.releaseLocked(id, r)
			delete(c.entities, id)
		}
		if vehicleID, ok := c.passengers[id]; ok {
			delete(c.passengers, id)
			if v, ok := c.entities[vehicleID]; ok {
				v.passenger, v.mounted = 0, false
				c.entities[vehicleID] = v
			}
		}
	}
}

// SetPassenger records passengerID as the rider of vehicleID. A passenger can
// only ride one vehicle, so a previous claim by another vehicle is dropped.
// It returns false and changes nothing if the vehicle is not cached.
func (c *EntityCache) SetPassenger(vehicleID, passengerID int32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entities[vehicleID]
	if !ok {
		return false
	}
	c.releaseLocked(vehicleID, r)

	if prev, ok := c.passengers[passengerID]; ok && prev != vehicleID {
		if pv, ok := c.entities[prev]; ok {
			pv.passenger, pv.mounted = 0, false
			c.entities[prev] = pv
		}
	}

	r.passenger, r.mounted = passengerID, true
	c.entities[vehicleID] = r
	c.passengers[passengerID] = vehicleID
	return true
}

// ClearPassenger removes the rider of vehicleID and returns it. had is
// false if the vehicle is not cached or carried nobody.
func (c *EntityCache) ClearPassenger(vehicleID int32) (prev int32, had bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entities[vehicleID]
	if !ok {
		return 0, false
	}
	prev, had = r.passenger, r.mounted
	c.releaseLocked(vehicleID, r)
	r.passenger, r.mounted = 0, false
	c.entities[vehicleID] = r
	return prev, had
}

// Dismount removes passengerID from the vehicle it rides and returns that
// vehicle.
func (c *EntityCache) Dismount(passengerID int32) (vehicleID int32, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vehicleID, ok = c.passengers[passengerID]
	if !ok {
		return 0, false
	}
	delete(c.passengers, passengerID)
	if v, found := c.entities[vehicleID]; found && v.mounted && v.passenger == passengerID {
		v.passenger, v.mounted = 0, false
		c.entities[vehicleID] = v
	}
	return vehicleID, true
}

// Passenger returns the id riding vehicleID.
func (c *EntityCache) Passenger(vehicleID int32) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entities[vehicleID]
	if !ok || !r.mounted {
		return 0, false
	}
	return r.passenger, true
}

// VehicleByPassenger resolves the vehicle a passenger is riding.
func (c *EntityCache) VehicleByPassenger(passengerID int32) (int32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.passengers[passengerID]
	return id, ok
}

// VehicleHealth returns the last real health seen for vehicleID, or
// DefaultVehicleHealth when it is unknown.
func (c *EntityCache) VehicleHealth(vehicleID int32) float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entities[vehicleID]
	if !ok {
		return DefaultVehicleHealth
	}
	return r.Health()
}

// Len returns the number of cached entities.
func (c *EntityCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entities)
}

// Mounted returns the number of vehicles currently carrying a passenger.
func (c *EntityCache) Mounted() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.passengers)
}

// releaseLocked drops the reverse entry owned by vehicle id. Caller holds mu.
func (c *EntityCache) releaseLocked(id int32, r Record) {
	if !r.mounted {
		return
	}
	if owner, ok := c.passengers[r.passenger]; ok && owner == id {
		delete(c.passengers, r.passenger)
	}
}
