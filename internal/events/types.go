// Package events defines the domain events raised by protocol handlers and the
// bus that carries them to the publishing pipeline.
package events

import (
	"time"

	"github.com/riftwatch/riftwatch/internal/protocol"
)

// EventType represents the type of event emitted through the EventBus.
type EventType string

const (
	// Player events
	EventPlayerSpotted EventType = "player_spotted"
	EventPlayerLeft    EventType = "player_left"
	EventPlayerMoved   EventType = "player_moved"

	// Mob and world object events
	EventMobSpawned       EventType = "mob_spawned"
	EventMobHealthChanged EventType = "mob_health_changed"
	EventEntityLeft       EventType = "entity_left"
	EventDungeonFound     EventType = "dungeon_found"
	EventWispSpotted      EventType = "wisp_spotted"

	// Zone events
	EventClusterChanged EventType = "cluster_changed"
	EventWorldSnapshot  EventType = "world_snapshot"

	// System events
	EventShutdown EventType = "shutdown"
)

// DomainEvents lists every event type a protocol handler or the scheduler can raise.
var DomainEvents = []EventType{
	EventPlayerSpotted,
	EventPlayerLeft,
	EventPlayerMoved,
	EventMobSpawned,
	EventMobHealthChanged,
	EventEntityLeft,
	EventDungeonFound,
	EventWispSpotted,
	EventClusterChanged,
	EventWorldSnapshot,
}

// Event represents a single event in the system. Cluster and Region are the
// zone the event was observed in, stamped at emission.
type Event struct {
	Type       EventType
	Source     string
	ObservedAt time.Time
	Cluster    string
	Region     string
	Payload    interface{}
}

// PlayerSpottedPayload is raised when another player enters view.
type PlayerSpottedPayload struct {
	PlayerID int64
	Name     string
	Guild    string
	Alliance string
	Tier     int
	Position protocol.Vec2
}

// PlayerLeftPayload is raised when a player leaves view.
type PlayerLeftPayload struct {
	PlayerID int64
}

// PlayerMovedPayload carries one movement update.
type PlayerMovedPayload struct {
	PlayerID    int64
	Timestamp   int64
	Speed       float32
	Position    protocol.Vec2
	NewPosition protocol.Vec2
}

// MobSpawnedPayload is raised when a mob enters view.
type MobSpawnedPayload struct {
	MobID    int64
	TypeID   int32
	Name     string
	Tier     int
	Category string
	Charge   int
	Health   float32
	Position protocol.Vec2
}

// MobHealthChangedPayload carries a mob health update.
type MobHealthChangedPayload struct {
	MobID  int64
	Health float32
}

// EntityLeftPayload is raised when a non-player object leaves view.
type EntityLeftPayload struct {
	EntityID int64
}

// DungeonFoundPayload is raised when a dungeon entrance enters view.
type DungeonFoundPayload struct {
	DungeonID int64
	Type      string
	Charges   int
	Position  protocol.Vec2
}

// WispSpottedPayload is raised when a gated wisp enters view.
type WispSpottedPayload struct {
	WispID   int64
	Position protocol.Vec2
}

// ClusterChangedPayload is raised when the local player changes zone.
type ClusterChangedPayload struct {
	Previous string
	Cluster  string
	Region   string
}

// WorldSnapshotPayload summarises the registry at one instant.
type WorldSnapshotPayload struct {
	Cluster   string
	Region    string
	Players   int
	Mobs      int
	Dungeons  int
	Wisps     int
	Movements int
}
