// Package contracts defines the versioned payloads published to the broker.
// A contract never changes shape once released; a new shape gets a new
// version suffix.
package contracts

import (
	"time"

	"github.com/google/uuid"
)

// Contract is one publishable payload.
type Contract interface {
	// ContractName is the type name including version, e.g. "PlayerSpottedV1".
	ContractName() string
	// AppendWire appends the protobuf wire encoding of the contract to b.
	AppendWire(b []byte) []byte
}

// Meta is the envelope shared by every contract. Field numbers 1-4 are
// reserved for it in the wire encoding.
type Meta struct {
	EventId    string    `json:"eventId"`
	ObservedAt time.Time `json:"observedAt"`
	Cluster    string    `json:"cluster"`
	Region     string    `json:"region"`
}

// IDSource produces event ids.
type IDSource func() string

// NewEventID returns a random UUID string.
func NewEventID() string {
	return uuid.NewString()
}

func (m Meta) appendWire(b []byte) []byte {
	b = appendString(b, 1, m.EventId)
	b = appendTime(b, 2, m.ObservedAt)
	b = appendString(b, 3, m.Cluster)
	b = appendString(b, 4, m.Region)
	return b
}

// PlayerSpottedV1 is published when another player enters view.
type PlayerSpottedV1 struct {
	Meta
	PlayerId     int64   `json:"playerId"`
	PlayerName   string  `json:"playerName"`
	GuildName    string  `json:"guildName"`
	AllianceName string  `json:"allianceName"`
	X            float32 `json:"x"`
	Y            float32 `json:"y"`
	Tier         int     `json:"tier"`
}

func (PlayerSpottedV1) ContractName() string { return "PlayerSpottedV1" }

func (c PlayerSpottedV1) AppendWire(b []byte) []byte {
	b = c.Meta.appendWire(b)
	b = appendInt(b, 5, c.PlayerId)
	b = appendString(b, 6, c.PlayerName)
	b = appendString(b, 7, c.GuildName)
	b = appendString(b, 8, c.AllianceName)
	b = appendFloat(b, 9, c.X)
	b = appendFloat(b, 10, c.Y)
	b = appendInt(b, 11, int64(c.Tier))
	return b
}

// MobSpawnedV1 is published when a mob enters view.
type MobSpawnedV1 struct {
	Meta
	MobId    int64   `json:"mobId"`
	TypeId   int32   `json:"typeId"`
	Name     string  `json:"name,omitempty"`
	Tier     int     `json:"tier"`
	Category string  `json:"category,omitempty"`
	Charge   int     `json:"charge"`
	Health   float32 `json:"health"`
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
}

func (MobSpawnedV1) ContractName() string { return "MobSpawnedV1" }

func (c MobSpawnedV1) AppendWire(b []byte) []byte {
	b = c.Meta.appendWire(b)
	b = appendInt(b, 5, c.MobId)
	b = appendInt(b, 6, int64(c.TypeId))
	b = appendString(b, 7, c.Name)
	b = appendInt(b, 8, int64(c.Tier))
	b = appendString(b, 9, c.Category)
	b = appendInt(b, 10, int64(c.Charge))
	b = appendFloat(b, 11, c.Health)
	b = appendFloat(b, 12, c.X)
	b = appendFloat(b, 13, c.Y)
	return b
}

// DungeonFoundV1 is published when a dungeon entrance enters view.
type DungeonFoundV1 struct {
	Meta
	DungeonId int64   `json:"dungeonId"`
	Type      string  `json:"type"`
	Charges   int     `json:"charges"`
	X         float32 `json:"x"`
	Y         float32 `json:"y"`
}

func (DungeonFoundV1) ContractName() string { return "DungeonFoundV1" }

func (c DungeonFoundV1) AppendWire(b []byte) []byte {
	b = c.Meta.appendWire(b)
	b = appendInt(b, 5, c.DungeonId)
	b = appendString(b, 6, c.Type)
	b = appendInt(b, 7, int64(c.Charges))
	b = appendFloat(b, 8, c.X)
	b = appendFloat(b, 9, c.Y)
	return b
}

// WispSpottedV1 is published when a gated wisp enters view.
type WispSpottedV1 struct {
	Meta
	WispId int64   `json:"wispId"`
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
}

func (WispSpottedV1) ContractName() string { return "WispSpottedV1" }

func (c WispSpottedV1) AppendWire(b []byte) []byte {
	b = c.Meta.appendWire(b)
	b = appendInt(b, 5, c.WispId)
	b = appendFloat(b, 6, c.X)
	b = appendFloat(b, 7, c.Y)
	return b
}

// PlayerMovedV1 is published for each movement update.
type PlayerMovedV1 struct {
	Meta
	PlayerId  int64   `json:"playerId"`
	Timestamp int64   `json:"timestamp"`
	Speed     float32 `json:"speed"`
	FromX     float32 `json:"fromX"`
	FromY     float32 `json:"fromY"`
	ToX       float32 `json:"toX"`
	ToY       float32 `json:"toY"`
}

func (PlayerMovedV1) ContractName() string { return "PlayerMovedV1" }

func (c PlayerMovedV1) AppendWire(b []byte) []byte {
	b = c.Meta.appendWire(b)
	b = appendInt(b, 5, c.PlayerId)
	b = appendInt(b, 6, c.Timestamp)
	b = appendFloat(b, 7, c.Speed)
	b = appendFloat(b, 8, c.FromX)
	b = appendFloat(b, 9, c.FromY)
	b = appendFloat(b, 10, c.ToX)
	b = appendFloat(b, 11, c.ToY)
	return b
}

// ClusterChangedV1 is published when the observer changes zone.
type ClusterChangedV1 struct {
	Meta
	PreviousCluster string `json:"previousCluster"`
}

func (ClusterChangedV1) ContractName() string { return "ClusterChangedV1" }

func (c ClusterChangedV1) AppendWire(b []byte) []byte {
	b = c.Meta.appendWire(b)
	b = appendString(b, 5, c.PreviousCluster)
	return b
}

// WorldSnapshotV1 is the periodic summary of the world registry.
type WorldSnapshotV1 struct {
	Meta
	Players   int `json:"players"`
	Mobs      int `json:"mobs"`
	Dungeons  int `json:"dungeons"`
	Wisps     int `json:"wisps"`
	Movements int `json:"movements"`
}

func (WorldSnapshotV1) ContractName() string { return "WorldSnapshotV1" }

func (c WorldSnapshotV1) AppendWire(b []byte) []byte {
	b = c.Meta.appendWire(b)
	b = appendInt(b, 5, int64(c.Players))
	b = appendInt(b, 6, int64(c.Mobs))
	b = appendInt(b, 7, int64(c.Dungeons))
	b = appendInt(b, 8, int64(c.Wisps))
	b = appendInt(b, 9, int64(c.Movements))
	return b
}
