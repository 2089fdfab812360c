// Package world holds the in-memory model of the observed game world: one
// concurrent store per kind of object, plus the current zone.
package world

import (
	"time"

	"github.com/riftwatch/riftwatch/internal/protocol"
)

// Vec2 is a world coordinate.
type Vec2 = protocol.Vec2

// Entity is anything kept in a Store.
type Entity interface {
	EntityID() int64
}

// Player is another player in view.
type Player struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Guild    string    `json:"guild,omitempty"`
	Alliance string    `json:"alliance,omitempty"`
	Tier     int       `json:"tier"`
	Position Vec2      `json:"position"`
	LastSeen time.Time `json:"last_seen"`
}

func (p Player) EntityID() int64 { return p.ID }

// Mob is a hostile or harvestable creature.
type Mob struct {
	ID       int64    `json:"id"`
	TypeID   int32    `json:"type_id"`
	Charge   int      `json:"charge"`
	Health   float32  `json:"health"`
	Info     *MobInfo `json:"info,omitempty"`
	Position Vec2     `json:"position"`
}

func (m Mob) EntityID() int64 { return m.ID }

// Dungeon is a dungeon entrance.
type Dungeon struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Charges  int    `json:"charges"`
	Position Vec2   `json:"position"`
}

func (d Dungeon) EntityID() int64 { return d.ID }

// GatedWisp is a gated wisp object.
type GatedWisp struct {
	ID       int64 `json:"id"`
	Position Vec2  `json:"position"`
}

func (w GatedWisp) EntityID() int64 { return w.ID }

// Movement is the latest movement update of one player, keyed by player id.
type Movement struct {
	ID          int64     `json:"id"`
	PlayerID    int64     `json:"player_id"`
	Timestamp   int64     `json:"timestamp"`
	Speed       float32   `json:"speed"`
	Position    Vec2      `json:"position"`
	NewPosition Vec2      `json:"new_position"`
	ReceivedAt  time.Time `json:"received_at"`
}

func (m Movement) EntityID() int64 { return m.ID }

// MobInfo is static reference data for one mob type. It is shared read-only
// between mobs and never stored in the registry itself.
type MobInfo struct {
	TypeID   int32  `json:"type_id" yaml:"type_id"`
	Name     string `json:"name" yaml:"name"`
	Tier     int    `json:"tier" yaml:"tier"`
	Category string `json:"category" yaml:"category"`
}

// MobCatalog resolves mob type ids to reference data.
type MobCatalog interface {
	Lookup(typeID int32) (*MobInfo, bool)
}
