package capture

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"
)

func datagram(commands ...[]byte) []byte {
	out := make([]byte, datagramHeaderSize)
	out[3] = byte(len(commands))
	for _, c := range commands {
		out = append(out, c...)
	}
	return out
}

func command(cmdType byte, body []byte) []byte {
	c := make([]byte, commandHeaderSize, commandHeaderSize+len(body))
	c[0] = cmdType
	binary.BigEndian.PutUint32(c[4:8], uint32(commandHeaderSize+len(body)))
	return append(c, body...)
}

func fragment(start, count, number, total, offset uint32, data []byte) []byte {
	h := make([]byte, fragmentHeaderSize)
	binary.BigEndian.PutUint32(h[0:4], start)
	binary.BigEndian.PutUint32(h[4:8], count)
	binary.BigEndian.PutUint32(h[8:12], number)
	binary.BigEndian.PutUint32(h[12:16], total)
	binary.BigEndian.PutUint32(h[16:20], offset)
	return command(CommandFragment, append(h, data...))
}

func collect(t *testing.T, f *Framer, datagrams ...[]byte) [][]byte {
	t.Helper()
	var out [][]byte
	for _, d := range datagrams {
		if err := f.Feed(d, func(p []byte) { out = append(out, p) }); err != nil {
			t.Fatalf("feed: %v", err)
		}
	}
	return out
}

func TestFramerReliableAndUnreliable(t *testing.T) {
	msgA := []byte{0xF3, 4, 1, 0, 0}
	msgB := []byte{0xF3, 4, 2, 0, 0}

	unreliable := append([]byte{0, 0, 0, 9}, msgB...)
	d := datagram(
		command(CommandReliable, msgA),
		command(1, nil), // ack
		command(CommandUnreliable, unreliable),
	)

	f := NewFramer()
	got := collect(t, f, d)
	if len(got) != 2 || !bytes.Equal(got[0], msgA) || !bytes.Equal(got[1], msgB) {
		t.Fatalf("unexpected messages %x", got)
	}
	if s := f.Stats(); s.Messages != 2 || s.OtherTypes != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestFramerReassemblesFragmentsOutOfOrder(t *testing.T) {
	msg := []byte("0123456789abcdef")
	f := NewFramer()

	got := collect(t, f,
		datagram(fragment(100, 3, 2, 16, 12, msg[12:])),
		datagram(fragment(100, 3, 0, 16, 0, msg[:6])),
	)
	if len(got) != 0 || f.Pending() != 1 {
		t.Fatalf("expected message pending, got %d messages, %d pending", len(got), f.Pending())
	}

	got = collect(t, f, datagram(fragment(100, 3, 1, 16, 6, msg[6:12])))
	if len(got) != 1 || !bytes.Equal(got[0], msg) {
		t.Fatalf("expected reassembled %q, got %q", msg, got)
	}
	if f.Pending() != 0 {
		t.Fatal("expected reassembly buffer released")
	}
}

func TestFramerDuplicateFragmentDoesNotComplete(t *testing.T) {
	f := NewFramer()
	got := collect(t, f,
		datagram(fragment(5, 2, 0, 4, 0, []byte("ab"))),
		datagram(fragment(5, 2, 0, 4, 0, []byte("ab"))),
	)
	if len(got) != 0 {
		t.Fatal("duplicate fragment must not complete the message")
	}
}

func TestFramerRejectsMalformed(t *testing.T) {
	f := NewFramer()
	if err := f.Feed([]byte{1, 2, 3}, func([]byte) {}); !errors.Is(err, ErrShortDatagram) {
		t.Fatalf("expected ErrShortDatagram, got %v", err)
	}

	bad := datagram(command(CommandReliable, []byte{1, 2}))
	binary.BigEndian.PutUint32(bad[datagramHeaderSize+4:], 1000)
	if err := f.Feed(bad, func([]byte) {}); !errors.Is(err, ErrBadCommand) {
		t.Fatalf("expected ErrBadCommand, got %v", err)
	}

	overrun := datagram(fragment(1, 1, 0, 2, 1, []byte("abc")))
	if err := f.Feed(overrun, func([]byte) {}); !errors.Is(err, ErrBadCommand) {
		t.Fatalf("expected ErrBadCommand for overrun, got %v", err)
	}
}

func TestFramerEvictsOldestPending(t *testing.T) {
	f := NewFramer()
	for i := 0; i < maxPendingMessages+5; i++ {
		collect(t, f, datagram(fragment(uint32(i), 2, 0, 2, 0, []byte("a"))))
	}
	if f.Pending() != maxPendingMessages {
		t.Fatalf("expected %d pending, got %d", maxPendingMessages, f.Pending())
	}
	if f.Stats().Evicted != 5 {
		t.Fatalf("expected 5 evicted, got %d", f.Stats().Evicted)
	}
}

func TestFlowsKeepFragmentsApart(t *testing.T) {
	fl := NewFlows()
	var out [][]byte
	feed := func(flow string, d []byte) {
		t.Helper()
		if err := fl.Feed(flow, d, func(p []byte) { out = append(out, p) }); err != nil {
			t.Fatalf("feed %s: %v", flow, err)
		}
	}

	// Both peers reuse start sequence 10 with different message sizes.
	feed("a", datagram(fragment(10, 2, 0, 4, 0, []byte("ab"))))
	feed("b", datagram(fragment(10, 2, 0, 6, 0, []byte("xyz"))))
	feed("a", datagram(fragment(10, 2, 1, 4, 2, []byte("cd"))))
	feed("b", datagram(fragment(10, 2, 1, 6, 3, []byte("uvw"))))

	if len(out) != 2 || !bytes.Equal(out[0], []byte("abcd")) || !bytes.Equal(out[1], []byte("xyzuvw")) {
		t.Fatalf("expected abcd and xyzuvw, got %q", out)
	}
	if fl.Len() != 2 {
		t.Fatalf("expected 2 flows, got %d", fl.Len())
	}
	if st := fl.Stats(); st.Messages != 2 || st.Fragments != 4 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestFlowsEvictOldest(t *testing.T) {
	fl := NewFlows()
	for i := 0; i < maxFlows+3; i++ {
		if err := fl.Feed(fmt.Sprint(i), datagram(), func([]byte) {}); err != nil {
			t.Fatalf("feed: %v", err)
		}
	}
	if fl.Len() != maxFlows {
		t.Fatalf("expected %d flows, got %d", maxFlows, fl.Len())
	}
	if st := fl.Stats(); st.Evicted != 3 {
		t.Fatalf("expected 3 evicted flows, got %d", st.Evicted)
	}
}

func TestChanSource(t *testing.T) {
	ch := make(chan []byte, 2)
	ch <- []byte{1}
	ch <- []byte{2}
	close(ch)

	var got int
	err := ChanSource{C: ch}.Run(context.Background(), func([]byte) { got++ })
	if err != nil || got != 2 {
		t.Fatalf("expected 2 payloads and nil error, got %d, %v", got, err)
	}
}
