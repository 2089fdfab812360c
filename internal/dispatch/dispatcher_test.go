package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/riftwatch/riftwatch/internal/capture"
	"github.com/riftwatch/riftwatch/internal/codes"
	"github.com/riftwatch/riftwatch/internal/protocol"
	"github.com/riftwatch/riftwatch/internal/world"
)

func newDispatcher() (*Dispatcher, *world.Registry) {
	reg := world.NewRegistry("test")
	return New(Options{MaxInFlight: 4}, nil, reg, nil), reg
}

func mustEvent(t *testing.T, code byte, params ...protocol.Param) []byte {
	t.Helper()
	b, err := protocol.BuildEvent(code, params...)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestUnregisteredCodeIsIgnored(t *testing.T) {
	d, reg := newDispatcher()
	d.Register(protocol.KindEvent, 1, "one", func(ctx context.Context, c *Call) error {
		c.World.Players.Upsert(1, world.Player{ID: 1})
		return nil
	})

	err := d.Dispatch(context.Background(), mustEvent(t, 99, protocol.Param{Key: 1, Value: protocol.IntValue(1)}))
	if err != nil {
		t.Fatalf("expected nil for unregistered code, got %v", err)
	}
	if reg.Players.Len() != 0 {
		t.Fatal("unregistered code mutated the registry")
	}
	if s := d.Stats(); s.Unregistered != 1 || s.Dispatched != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestKindIsPartOfTheKey(t *testing.T) {
	d, _ := newDispatcher()
	var called atomic.Bool
	d.Register(protocol.KindRequest, 5, "req", func(context.Context, *Call) error {
		called.Store(true)
		return nil
	})

	d.Dispatch(context.Background(), mustEvent(t, 5))
	if called.Load() {
		t.Fatal("event 5 must not reach the request 5 handler")
	}
}

func TestHandlerPanicBecomesFault(t *testing.T) {
	d, _ := newDispatcher()
	d.Register(protocol.KindEvent, 7, "boom", func(context.Context, *Call) error {
		panic("kaboom")
	})

	err := d.Dispatch(context.Background(), mustEvent(t, 7))
	var fault *HandlerFault
	if !errors.As(err, &fault) {
		t.Fatalf("expected HandlerFault, got %v", err)
	}
	if fault.Name != "boom" || fault.Code != 7 || fault.Kind != protocol.KindEvent {
		t.Fatalf("unexpected fault %+v", fault)
	}
	if d.Stats().HandlerFaults != 1 {
		t.Fatal("fault not counted")
	}
}

func TestHandlerErrorIsWrapped(t *testing.T) {
	d, _ := newDispatcher()
	sentinel := errors.New("bad data")
	d.Register(protocol.KindEvent, 8, "err", func(context.Context, *Call) error { return sentinel })

	if err := d.Dispatch(context.Background(), mustEvent(t, 8)); !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
}

func TestDecodeErrorIsReturned(t *testing.T) {
	d, _ := newDispatcher()
	err := d.Dispatch(context.Background(), []byte{protocol.Signature, protocol.MsgEvent, 1, 0, 1, 1, 'x', 0, 0, 0, 9})
	if !errors.Is(err, protocol.ErrTruncatedInput) {
		t.Fatalf("expected truncated input, got %v", err)
	}
	if d.Stats().DecodeErrors != 1 {
		t.Fatal("decode error not counted")
	}
}

func TestDuplicateRegistration(t *testing.T) {
	d, _ := newDispatcher()
	noop := func(context.Context, *Call) error { return nil }
	if err := d.Register(protocol.KindEvent, 1, "a", noop); err != nil {
		t.Fatal(err)
	}
	if err := d.Register(protocol.KindEvent, 1, "b", noop); !errors.Is(err, ErrDuplicateHandler) {
		t.Fatalf("expected ErrDuplicateHandler, got %v", err)
	}
	if err := d.Register(protocol.KindEvent, 2, "nil", nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestBindTableUnknownHandler(t *testing.T) {
	d, _ := newDispatcher()
	err := d.BindTable(codes.Default(), map[string]HandlerFunc{})
	if err == nil {
		t.Fatal("expected error for table naming unknown handlers")
	}
}

func TestStopRejectsNewPayloads(t *testing.T) {
	d, _ := newDispatcher()
	d.Stop()
	if err := d.Dispatch(context.Background(), mustEvent(t, 1)); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	if d.Stats().Dropped != 1 {
		t.Fatal("dropped payload not counted")
	}
}

func TestRunDispatchesEverything(t *testing.T) {
	d, reg := newDispatcher()
	d.Register(protocol.KindEvent, 1, "spot", func(ctx context.Context, c *Call) error {
		id, _ := c.Params.Int(1)
		c.World.Players.Upsert(id, world.Player{ID: id})
		return nil
	})

	ch := make(chan []byte, 101)
	for i := 0; i < 100; i++ {
		ch <- mustEvent(t, 1, protocol.Param{Key: 1, Value: protocol.IntValue(int32(i))})
	}
	ch <- []byte{0x00}
	close(ch)

	if err := d.Run(context.Background(), capture.ChanSource{C: ch}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if reg.Players.Len() != 100 {
		t.Fatalf("expected 100 players, got %d", reg.Players.Len())
	}
	if s := d.Stats(); s.Received != 101 || s.DecodeErrors != 1 || s.InFlight != 0 {
		t.Fatalf("unexpected stats %+v", s)
	}
}
