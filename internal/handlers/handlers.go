// Package handlers implements the protocol handlers that turn game messages
// into world registry updates and domain events.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/riftwatch/riftwatch/internal/dispatch"
	"github.com/riftwatch/riftwatch/internal/events"
	"github.com/riftwatch/riftwatch/internal/world"
)

// ErrMissingParameter means a required parameter was absent or of the wrong type.
var ErrMissingParameter = errors.New("missing parameter")

func missing(key byte, what string) error {
	return fmt.Errorf("%w %d (%s)", ErrMissingParameter, key, what)
}

// Catalog returns every handler keyed by the name used in the code table.
// mobs may be nil, in which case spawned mobs carry no reference data.
func Catalog(mobs world.MobCatalog) map[string]dispatch.HandlerFunc {
	h := &set{mobs: mobs, now: time.Now}
	return map[string]dispatch.HandlerFunc{
		"player_spotted":  h.playerSpotted,
		"player_left":     h.playerLeft,
		"player_moved":    h.playerMoved,
		"mob_spawned":     h.mobSpawned,
		"mob_health":      h.mobHealth,
		"entity_left":     h.entityLeft,
		"dungeon_found":   h.dungeonFound,
		"wisp_spotted":    h.wispSpotted,
		"cluster_changed": h.clusterChanged,
	}
}

type set struct {
	mobs world.MobCatalog
	now  func() time.Time
}

func (h *set) playerSpotted(ctx context.Context, c *dispatch.Call) error {
	id, ok := c.Params.Int(1)
	if !ok {
		return missing(1, "player id")
	}
	pos, _ := c.Params.Position(2)
	name, ok := c.Params.String(3)
	if !ok {
		return missing(3, "player name")
	}
	guild, _ := c.Params.String(4)
	alliance, _ := c.Params.String(5)
	tier, _ := c.Params.Int(6)

	player := world.Player{
		ID:       id,
		Name:     name,
		Guild:    guild,
		Alliance: alliance,
		Tier:     int(tier),
		Position: pos,
		LastSeen: h.now(),
	}
	if !c.World.Players.Upsert(id, player) {
		return nil
	}

	c.Emit(events.EventPlayerSpotted, events.PlayerSpottedPayload{
		PlayerID: id,
		Name:     name,
		Guild:    guild,
		Alliance: alliance,
		Tier:     int(tier),
		Position: pos,
	})
	return nil
}

func (h *set) playerLeft(ctx context.Context, c *dispatch.Call) error {
	id, ok := c.Params.Int(1)
	if !ok {
		return missing(1, "player id")
	}
	removed := c.World.Players.Remove(id)
	c.World.Movements.Remove(id)
	if removed {
		c.Emit(events.EventPlayerLeft, events.PlayerLeftPayload{PlayerID: id})
	}
	return nil
}

func (h *set) playerMoved(ctx context.Context, c *dispatch.Call) error {
	id, ok := c.Params.Int(1)
	if !ok {
		return missing(1, "player id")
	}
	next, ok := c.Params.Position(3)
	if !ok {
		return missing(3, "new position")
	}
	ts, _ := c.Params.Int(2)
	speed, _ := c.Params.Float(4)

	var fallback world.Vec2
	if p, ok := c.World.Players.Get(id); ok {
		fallback = p.Position
	}

	mv, ok := c.World.Movements.Modify(id, func(prev world.Movement, had bool) (world.Movement, bool) {
		from := fallback
		if had {
			from = prev.NewPosition
		}
		return world.Movement{
			ID:          id,
			PlayerID:    id,
			Timestamp:   ts,
			Speed:       float32(speed),
			Position:    from,
			NewPosition: next,
			ReceivedAt:  h.now(),
		}, true
	})
	if !ok {
		return nil
	}
	c.World.Players.Update(id, func(p world.Player) (world.Player, bool) {
		p.Position = next
		p.LastSeen = mv.ReceivedAt
		return p, true
	})

	c.Emit(events.EventPlayerMoved, events.PlayerMovedPayload{
		PlayerID:    id,
		Timestamp:   ts,
		Speed:       mv.Speed,
		Position:    mv.Position,
		NewPosition: next,
	})
	return nil
}

func (h *set) mobSpawned(ctx context.Context, c *dispatch.Call) error {
	id, ok := c.Params.Int(1)
	if !ok {
		return missing(1, "mob id")
	}
	typeID, ok := c.Params.Int(2)
	if !ok {
		return missing(2, "mob type")
	}
	pos, _ := c.Params.Position(3)
	health, _ := c.Params.Float(4)
	charge, _ := c.Params.Int(5)

	mob := world.Mob{
		ID:       id,
		TypeID:   int32(typeID),
		Charge:   int(charge),
		Health:   float32(health),
		Position: pos,
	}
	if h.mobs != nil {
		if info, ok := h.mobs.Lookup(mob.TypeID); ok {
			mob.Info = info
		}
	}
	if !c.World.Mobs.Upsert(id, mob) {
		return nil
	}

	payload := events.MobSpawnedPayload{
		MobID:    id,
		TypeID:   mob.TypeID,
		Charge:   mob.Charge,
		Health:   mob.Health,
		Position: pos,
	}
	if mob.Info != nil {
		payload.Name = mob.Info.Name
		payload.Tier = mob.Info.Tier
		payload.Category = mob.Info.Category
	}
	c.Emit(events.EventMobSpawned, payload)
	return nil
}

// mobHealth copies the stored mob, updates its health and writes it back.
// Updates for mobs not in view are ignored.
func (h *set) mobHealth(ctx context.Context, c *dispatch.Call) error {
	id, ok := c.Params.Int(1)
	if !ok {
		return missing(1, "mob id")
	}
	health, ok := c.Params.Float(2)
	if !ok {
		return missing(2, "health")
	}

	mob, ok := c.World.Mobs.Update(id, func(m world.Mob) (world.Mob, bool) {
		m.Health = float32(health)
		return m, true
	})
	if !ok {
		return nil
	}
	c.Emit(events.EventMobHealthChanged, events.MobHealthChangedPayload{MobID: id, Health: mob.Health})
	return nil
}

func (h *set) entityLeft(ctx context.Context, c *dispatch.Call) error {
	id, ok := c.Params.Int(1)
	if !ok {
		return missing(1, "entity id")
	}
	removed := c.World.Mobs.Remove(id)
	removed = c.World.Dungeons.Remove(id) || removed
	removed = c.World.Wisps.Remove(id) || removed
	if removed {
		c.Emit(events.EventEntityLeft, events.EntityLeftPayload{EntityID: id})
	}
	return nil
}

func (h *set) dungeonFound(ctx context.Context, c *dispatch.Call) error {
	id, ok := c.Params.Int(1)
	if !ok {
		return missing(1, "dungeon id")
	}
	pos, _ := c.Params.Position(2)
	kind, _ := c.Params.String(3)
	charges, _ := c.Params.Int(4)

	d := world.Dungeon{ID: id, Type: kind, Charges: int(charges), Position: pos}
	if !c.World.Dungeons.Upsert(id, d) {
		return nil
	}
	c.Emit(events.EventDungeonFound, events.DungeonFoundPayload{
		DungeonID: id,
		Type:      kind,
		Charges:   d.Charges,
		Position:  pos,
	})
	return nil
}

func (h *set) wispSpotted(ctx context.Context, c *dispatch.Call) error {
	id, ok := c.Params.Int(1)
	if !ok {
		return missing(1, "wisp id")
	}
	pos, _ := c.Params.Position(2)

	if !c.World.Wisps.Upsert(id, world.GatedWisp{ID: id, Position: pos}) {
		return nil
	}
	c.Emit(events.EventWispSpotted, events.WispSpottedPayload{WispID: id, Position: pos})
	return nil
}

// clusterChanged empties the registry before recording the new zone, so
// events raised afterwards carry the new cluster.
func (h *set) clusterChanged(ctx context.Context, c *dispatch.Call) error {
	cluster, ok := c.Params.String(1)
	if !ok {
		n, isInt := c.Params.Int(1)
		if !isInt {
			return missing(1, "cluster id")
		}
		cluster = strconv.FormatInt(n, 10)
	}

	c.World.ClearAll()
	prev := c.World.SetCluster(cluster)

	c.Emit(events.EventClusterChanged, events.ClusterChangedPayload{
		Previous: prev.Cluster,
		Cluster:  cluster,
		Region:   prev.Region,
	})
	return nil
}
