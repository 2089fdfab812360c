package transform

import (
	"time"

	"github.com/riftwatch/riftwatch/internal/contracts"
	"github.com/riftwatch/riftwatch/internal/events"
)

// Broker topics.
const (
	TopicPlayerSpotted  = "player.spotted"
	TopicMobSpawned     = "mob.spawned"
	TopicDungeonFound   = "dungeon.found"
	TopicWispSpotted    = "wisp.spotted"
	TopicPlayerMoved    = "player.moved"
	TopicClusterChanged = "cluster.changed"
	TopicWorldSnapshot  = "world.snapshot"
)

// Clock returns the current time.
type Clock func() time.Time

// metaFactory stamps the shared contract header.
type metaFactory struct {
	clock Clock
	ids   contracts.IDSource
}

func (f metaFactory) meta(evt events.Event) contracts.Meta {
	observed := evt.ObservedAt
	if observed.IsZero() {
		observed = f.clock()
	}
	return contracts.Meta{
		EventId:    f.ids(),
		ObservedAt: observed.UTC(),
		Cluster:    evt.Cluster,
		Region:     evt.Region,
	}
}

// payloadTransformer claims events of one type and converts payloads of type P.
type payloadTransformer[P any] struct {
	eventType events.EventType
	topic     string
	meta      metaFactory
	build     func(contracts.Meta, P) contracts.Contract
}

func (t payloadTransformer[P]) CanTransform(evt events.Event) bool {
	return evt.Type == t.eventType
}

func (t payloadTransformer[P]) TryTransform(evt events.Event) (bool, string, contracts.Contract) {
	p, ok := evt.Payload.(P)
	if !ok {
		return false, "", nil
	}
	return true, t.topic, t.build(t.meta.meta(evt), p)
}

// DefaultTransformers returns one transformer per published event type, in
// priority order. Events without a contract (mob health, entity left, player
// left) have no transformer and are dropped by the router.
func DefaultTransformers(clock Clock, ids contracts.IDSource) []Transformer {
	if clock == nil {
		clock = time.Now
	}
	if ids == nil {
		ids = contracts.NewEventID
	}
	m := metaFactory{clock: clock, ids: ids}

	return []Transformer{
		payloadTransformer[events.PlayerSpottedPayload]{
			eventType: events.EventPlayerSpotted,
			topic:     TopicPlayerSpotted,
			meta:      m,
			build: func(meta contracts.Meta, p events.PlayerSpottedPayload) contracts.Contract {
				return contracts.PlayerSpottedV1{
					Meta:         meta,
					PlayerId:     p.PlayerID,
					PlayerName:   p.Name,
					GuildName:    p.Guild,
					AllianceName: p.Alliance,
					X:            p.Position.X,
					Y:            p.Position.Y,
					Tier:         p.Tier,
				}
			},
		},
		payloadTransformer[events.MobSpawnedPayload]{
			eventType: events.EventMobSpawned,
			topic:     TopicMobSpawned,
			meta:      m,
			build: func(meta contracts.Meta, p events.MobSpawnedPayload) contracts.Contract {
				return contracts.MobSpawnedV1{
					Meta:     meta,
					MobId:    p.MobID,
					TypeId:   p.TypeID,
					Name:     p.Name,
					Tier:     p.Tier,
					Category: p.Category,
					Charge:   p.Charge,
					Health:   p.Health,
					X:        p.Position.X,
					Y:        p.Position.Y,
				}
			},
		},
		payloadTransformer[events.DungeonFoundPayload]{
			eventType: events.EventDungeonFound,
			topic:     TopicDungeonFound,
			meta:      m,
			build: func(meta contracts.Meta, p events.DungeonFoundPayload) contracts.Contract {
				return contracts.DungeonFoundV1{
					Meta:      meta,
					DungeonId: p.DungeonID,
					Type:      p.Type,
					Charges:   p.Charges,
					X:         p.Position.X,
					Y:         p.Position.Y,
				}
			},
		},
		payloadTransformer[events.WispSpottedPayload]{
			eventType: events.EventWispSpotted,
			topic:     TopicWispSpotted,
			meta:      m,
			build: func(meta contracts.Meta, p events.WispSpottedPayload) contracts.Contract {
				return contracts.WispSpottedV1{
					Meta:   meta,
					WispId: p.WispID,
					X:      p.Position.X,
					Y:      p.Position.Y,
				}
			},
		},
		payloadTransformer[events.PlayerMovedPayload]{
			eventType: events.EventPlayerMoved,
			topic:     TopicPlayerMoved,
			meta:      m,
			build: func(meta contracts.Meta, p events.PlayerMovedPayload) contracts.Contract {
				return contracts.PlayerMovedV1{
					Meta:      meta,
					PlayerId:  p.PlayerID,
					Timestamp: p.Timestamp,
					Speed:     p.Speed,
					FromX:     p.Position.X,
					FromY:     p.Position.Y,
					ToX:       p.NewPosition.X,
					ToY:       p.NewPosition.Y,
				}
			},
		},
		payloadTransformer[events.ClusterChangedPayload]{
			eventType: events.EventClusterChanged,
			topic:     TopicClusterChanged,
			meta:      m,
			build: func(meta contracts.Meta, p events.ClusterChangedPayload) contracts.Contract {
				meta.Cluster = p.Cluster
				if p.Region != "" {
					meta.Region = p.Region
				}
				return contracts.ClusterChangedV1{
					Meta:            meta,
					PreviousCluster: p.Previous,
				}
			},
		},
		payloadTransformer[events.WorldSnapshotPayload]{
			eventType: events.EventWorldSnapshot,
			topic:     TopicWorldSnapshot,
			meta:      m,
			build: func(meta contracts.Meta, p events.WorldSnapshotPayload) contracts.Contract {
				return contracts.WorldSnapshotV1{
					Meta:      meta,
					Players:   p.Players,
					Mobs:      p.Mobs,
					Dungeons:  p.Dungeons,
					Wisps:     p.Wisps,
					Movements: p.Movements,
				}
			},
		},
	}
}
