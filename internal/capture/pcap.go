package capture

import (
	"context"
	"fmt"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultFilter matches Photon game traffic.
const DefaultFilter = "udp port 5056"

// PcapSource reads Photon datagrams from a live interface or a capture file.
type PcapSource struct {
	Device  string
	File    string
	Filter  string
	Snaplen int32

	flows  *Flows
	logger zerolog.Logger
}

// NewPcapSource creates a source for device, or for file when file is set.
func NewPcapSource(device, file, filter string) *PcapSource {
	if filter == "" {
		filter = DefaultFilter
	}
	return &PcapSource{
		Device:  device,
		File:    file,
		Filter:  filter,
		Snaplen: 65536,
		flows:   NewFlows(),
		logger:  log.With().Str("component", "pcap").Logger(),
	}
}

func (s *PcapSource) open() (*pcap.Handle, error) {
	if s.File != "" {
		handle, err := pcap.OpenOffline(s.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open capture file %s: %w", s.File, err)
		}
		return handle, nil
	}
	handle, err := pcap.OpenLive(s.Device, s.Snaplen, true, pcap.BlockForever)
	if err != nil {
		return nil, fmt.Errorf("failed to open device %s: %w", s.Device, err)
	}
	return handle, nil
}

// Run implements Source.
func (s *PcapSource) Run(ctx context.Context, emit func([]byte)) error {
	handle, err := s.open()
	if err != nil {
		return err
	}
	defer handle.Close()

	if err := handle.SetBPFFilter(s.Filter); err != nil {
		return fmt.Errorf("failed to set filter %q: %w", s.Filter, err)
	}

	s.logger.Info().
		Str("device", s.Device).
		Str("file", s.File).
		Str("filter", s.Filter).
		Msg("packet capture started")

	packets := gopacket.NewPacketSource(handle, handle.LinkType()).Packets()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case packet, ok := <-packets:
			if !ok {
				s.logger.Info().Interface("stats", s.flows.Stats()).Msg("capture input exhausted")
				return nil
			}
			s.handle(packet, emit)
		}
	}
}

func (s *PcapSource) handle(packet gopacket.Packet, emit func([]byte)) {
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return
	}
	udp := udpLayer.(*layers.UDP)
	if err := s.flows.Feed(flowKey(packet, udp), udp.Payload, emit); err != nil {
		s.logger.Debug().
			Err(err).
			Uint16("src_port", uint16(udp.SrcPort)).
			Uint16("dst_port", uint16(udp.DstPort)).
			Msg("skipping malformed datagram")
	}
}

// flowKey names the directional flow a datagram belongs to.
func flowKey(packet gopacket.Packet, udp *layers.UDP) string {
	key := udp.TransportFlow().String()
	if nl := packet.NetworkLayer(); nl != nil {
		key = nl.NetworkFlow().String() + " " + key
	}
	return key
}
