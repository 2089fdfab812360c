package world

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Location is the zone the local player is in.
type Location struct {
	Cluster string `json:"cluster"`
	Region  string `json:"region"`
}

// Counts holds the size of every store.
type Counts struct {
	Players   int `json:"players"`
	Mobs      int `json:"mobs"`
	Dungeons  int `json:"dungeons"`
	Wisps     int `json:"wisps"`
	Movements int `json:"movements"`
}

// Registry is the shared world model handed to every protocol handler.
type Registry struct {
	Players   *Store[Player]
	Mobs      *Store[Mob]
	Dungeons  *Store[Dungeon]
	Wisps     *Store[GatedWisp]
	Movements *Store[Movement]

	location atomic.Pointer[Location]
}

// NewRegistry creates an empty registry located in region with no cluster yet.
func NewRegistry(region string) *Registry {
	r := &Registry{
		Players:   NewStore[Player](),
		Mobs:      NewStore[Mob](),
		Dungeons:  NewStore[Dungeon](),
		Wisps:     NewStore[GatedWisp](),
		Movements: NewStore[Movement](),
	}
	r.location.Store(&Location{Region: region})
	return r
}

// Location returns the current zone.
func (r *Registry) Location() Location {
	return *r.location.Load()
}

// SetCluster records a zone change and returns the previous location.
func (r *Registry) SetCluster(cluster string) Location {
	for {
		old := r.location.Load()
		next := &Location{Cluster: cluster, Region: old.Region}
		if r.location.CompareAndSwap(old, next) {
			return *old
		}
	}
}

// ClearAll empties every store, as on a zone change.
func (r *Registry) ClearAll() {
	r.Players.Clear()
	r.Mobs.Clear()
	r.Dungeons.Clear()
	r.Wisps.Clear()
	r.Movements.Clear()

	log.Debug().Str("component", "world").Msg("world registry cleared")
}

// Counts returns the size of every store.
func (r *Registry) Counts() Counts {
	return Counts{
		Players:   r.Players.Len(),
		Mobs:      r.Mobs.Len(),
		Dungeons:  r.Dungeons.Len(),
		Wisps:     r.Wisps.Len(),
		Movements: r.Movements.Len(),
	}
}

// PruneMovements drops movement records received before now-ttl.
func (r *Registry) PruneMovements(now time.Time, ttl time.Duration) int {
	cutoff := now.Add(-ttl)
	return r.Movements.RemoveWhere(func(m Movement) bool {
		return m.ReceivedAt.Before(cutoff)
	})
}
