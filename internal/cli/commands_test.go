package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/riftwatch/riftwatch/internal/events"
	"github.com/riftwatch/riftwatch/internal/world"
)

func run(t *testing.T, reg *world.Registry, bus *events.EventBus, input string) string {
	t.Helper()
	var out bytes.Buffer
	c := NewCLI(reg, bus, nil, nil, strings.NewReader(input), &out)

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cli did not finish")
	}
	return out.String()
}

func TestPlayersTable(t *testing.T) {
	reg := world.NewRegistry("europe")
	reg.Players.Upsert(42, world.Player{ID: 42, Name: "JohnDoe", Position: world.Vec2{X: 10.5, Y: 20}})

	out := run(t, reg, events.NewEventBus(), "players\n")
	for _, want := range []string{"JohnDoe", "42", "10.5", "20.0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestStatusAndUnknown(t *testing.T) {
	reg := world.NewRegistry("europe")
	reg.SetCluster("3004")

	out := run(t, reg, events.NewEventBus(), "status\nfoo\n")
	if !strings.Contains(out, "3004") || !strings.Contains(out, "europe") {
		t.Fatalf("status missing location:\n%s", out)
	}
	if !strings.Contains(out, "Unknown command: 'foo'") {
		t.Fatalf("unknown command not reported:\n%s", out)
	}
}

func TestClearEmptiesRegistry(t *testing.T) {
	reg := world.NewRegistry("europe")
	reg.Mobs.Upsert(1, world.Mob{ID: 1})

	run(t, reg, events.NewEventBus(), "clear\n")
	if reg.Mobs.Len() != 0 {
		t.Fatal("clear did not empty the registry")
	}
}

func TestQuitEmitsShutdown(t *testing.T) {
	bus := events.NewEventBus()
	defer bus.Stop()

	got := make(chan events.Event, 1)
	bus.Subscribe(events.EventShutdown, "test", func(_ context.Context, e events.Event) error {
		got <- e
		return nil
	})

	out := run(t, world.NewRegistry("europe"), bus, "quit\nplayers\n")
	if strings.Contains(out, "ID") {
		t.Fatal("commands after quit were executed")
	}
	select {
	case e := <-got:
		if e.Source != "cli" {
			t.Fatalf("unexpected source %q", e.Source)
		}
	case <-time.After(time.Second):
		t.Fatal("no shutdown event")
	}
}
