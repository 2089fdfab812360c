package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Photon UDP command layer.
const (
	datagramHeaderSize = 12
	commandHeaderSize  = 12
	fragmentHeaderSize = 20

	CommandReliable   byte = 6
	CommandUnreliable byte = 7
	CommandFragment   byte = 8

	// maxMessageSize bounds the reassembly buffer a fragment header may request.
	maxMessageSize = 1 << 20
	// maxPendingMessages bounds partially reassembled messages kept at once.
	maxPendingMessages = 64
)

var (
	ErrShortDatagram = errors.New("datagram shorter than its header")
	ErrBadCommand    = errors.New("malformed command")
)

type fragmentBuffer struct {
	data     []byte
	expected uint32
	seen     map[uint32]struct{}
}

// FramerStats counts what the framer has seen.
type FramerStats struct {
	Datagrams  uint64 `json:"datagrams"`
	Messages   uint64 `json:"messages"`
	Fragments  uint64 `json:"fragments"`
	Malformed  uint64 `json:"malformed"`
	Evicted    uint64 `json:"evicted"`
	OtherTypes uint64 `json:"other_types"`
}

// Framer unwraps Photon UDP datagrams into message bodies and reassembles
// fragmented messages. It keeps per-stream state and is not safe for
// concurrent use; give each stream its own Framer.
type Framer struct {
	pending map[uint32]*fragmentBuffer
	order   []uint32
	stats   FramerStats
}

// NewFramer creates an empty Framer.
func NewFramer() *Framer {
	return &Framer{pending: make(map[uint32]*fragmentBuffer)}
}

// Stats returns the framer counters.
func (f *Framer) Stats() FramerStats {
	return f.stats
}

// Feed parses one datagram and calls emit for every complete message in it.
// A malformed command stops processing of the rest of the datagram.
func (f *Framer) Feed(datagram []byte, emit func([]byte)) error {
	if len(datagram) < datagramHeaderSize {
		f.stats.Malformed++
		return ErrShortDatagram
	}
	f.stats.Datagrams++

	count := int(datagram[3])
	rest := datagram[datagramHeaderSize:]

	for i := 0; i < count; i++ {
		if len(rest) < commandHeaderSize {
			f.stats.Malformed++
			return fmt.Errorf("%w: command %d header truncated", ErrBadCommand, i)
		}
		cmdType := rest[0]
		length := binary.BigEndian.Uint32(rest[4:8])
		if length < commandHeaderSize || int(length) > len(rest) {
			f.stats.Malformed++
			return fmt.Errorf("%w: command %d length %d", ErrBadCommand, i, length)
		}
		body := rest[commandHeaderSize:length]
		rest = rest[length:]

		switch cmdType {
		case CommandReliable:
			f.deliver(body, emit)
		case CommandUnreliable:
			if len(body) < 4 {
				f.stats.Malformed++
				return fmt.Errorf("%w: unreliable command too short", ErrBadCommand)
			}
			f.deliver(body[4:], emit)
		case CommandFragment:
			if err := f.fragment(body, emit); err != nil {
				f.stats.Malformed++
				return err
			}
		default:
			// acks, pings and connect/disconnect carry no message.
			f.stats.OtherTypes++
		}
	}
	return nil
}

func (f *Framer) deliver(body []byte, emit func([]byte)) {
	if len(body) == 0 {
		return
	}
	out := make([]byte, len(body))
	copy(out, body)
	f.stats.Messages++
	emit(out)
}

func (f *Framer) fragment(body []byte, emit func([]byte)) error {
	if len(body) < fragmentHeaderSize {
		return fmt.Errorf("%w: fragment header truncated", ErrBadCommand)
	}
	start := binary.BigEndian.Uint32(body[0:4])
	count := binary.BigEndian.Uint32(body[4:8])
	number := binary.BigEndian.Uint32(body[8:12])
	total := binary.BigEndian.Uint32(body[12:16])
	offset := binary.BigEndian.Uint32(body[16:20])
	data := body[fragmentHeaderSize:]

	if total == 0 || total > maxMessageSize || count == 0 || number >= count {
		return fmt.Errorf("%w: fragment %d/%d of %d bytes", ErrBadCommand, number, count, total)
	}
	if uint64(offset)+uint64(len(data)) > uint64(total) {
		return fmt.Errorf("%w: fragment overruns message", ErrBadCommand)
	}
	f.stats.Fragments++

	buf, ok := f.pending[start]
	if !ok || uint32(len(buf.data)) != total || buf.expected != count {
		if !ok {
			f.order = append(f.order, start)
		}
		buf = &fragmentBuffer{
			data:     make([]byte, total),
			expected: count,
			seen:     make(map[uint32]struct{}, count),
		}
		f.pending[start] = buf
		f.evict()
	}

	copy(buf.data[offset:], data)
	buf.seen[number] = struct{}{}

	if uint32(len(buf.seen)) == buf.expected {
		f.drop(start)
		f.stats.Messages++
		emit(buf.data)
	}
	return nil
}

func (f *Framer) evict() {
	for len(f.order) > maxPendingMessages {
		oldest := f.order[0]
		f.order = f.order[1:]
		delete(f.pending, oldest)
		f.stats.Evicted++
	}
}

func (f *Framer) drop(start uint32) {
	delete(f.pending, start)
	for i, s := range f.order {
		if s == start {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

// Pending returns the number of partially reassembled messages.
func (f *Framer) Pending() int {
	return len(f.pending)
}

// maxFlows bounds the number of per-flow framers kept at once.
const maxFlows = 256

// Flows keeps one Framer per directional flow, so fragment start sequences
// from different peers or directions never share reassembly state.
type Flows struct {
	framers map[string]*Framer
	order   []string
	evicted uint64
}

// NewFlows creates an empty flow table.
func NewFlows() *Flows {
	return &Flows{framers: make(map[string]*Framer)}
}

// Feed hands datagram to the framer for flow, creating it on first use.
func (fl *Flows) Feed(flow string, datagram []byte, emit func([]byte)) error {
	return fl.framer(flow).Feed(datagram, emit)
}

func (fl *Flows) framer(flow string) *Framer {
	if f, ok := fl.framers[flow]; ok {
		return f
	}
	f := NewFramer()
	fl.framers[flow] = f
	fl.order = append(fl.order, flow)
	for len(fl.order) > maxFlows {
		delete(fl.framers, fl.order[0])
		fl.order = fl.order[1:]
		fl.evicted++
	}
	return f
}

// Len returns the number of tracked flows.
func (fl *Flows) Len() int {
	return len(fl.framers)
}

// Stats sums the counters of every tracked flow. Dropped flows count once
// towards Evicted and take their other counters with them.
func (fl *Flows) Stats() FramerStats {
	var total FramerStats
	for _, f := range fl.framers {
		s := f.Stats()
		total.Datagrams += s.Datagrams
		total.Messages += s.Messages
		total.Fragments += s.Fragments
		total.Malformed += s.Malformed
		total.Evicted += s.Evicted
		total.OtherTypes += s.OtherTypes
	}
	total.Evicted += fl.evicted
	return total
}
