package capture

import (
	"context"
	"errors"
	"net"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/riftwatch/riftwatch/internal/network"
)

// UDPSource receives mirrored Photon datagrams on a local UDP port, for setups
// where a port mirror or tap forwards game traffic to the sniffer host.
type UDPSource struct {
	Addr string
	// Raw means each datagram is already a message body rather than a Photon
	// UDP datagram.
	Raw bool

	flows  *Flows
	logger zerolog.Logger
}

// NewUDPSource creates a UDP listener source.
func NewUDPSource(addr string, raw bool) *UDPSource {
	return &UDPSource{
		Addr:   addr,
		Raw:    raw,
		flows:  NewFlows(),
		logger: log.With().Str("component", "udp_source").Logger(),
	}
}

// Run implements Source.
func (s *UDPSource) Run(ctx context.Context, emit func([]byte)) error {
	conn, err := network.ListenUDP(ctx, s.Addr)
	if err != nil {
		return err
	}

	s.logger.Info().Str("addr", conn.LocalAddr().String()).Msg("UDP capture listener started")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("UDP capture listener stopping")
				return ctx.Err()
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error().Err(err).Msg("UDP read error")
			continue
		}

		if s.Raw {
			payload := make([]byte, n)
			copy(payload, buf[:n])
			emit(payload)
			continue
		}
		if err := s.flows.Feed(remote.String(), buf[:n], emit); err != nil {
			s.logger.Debug().Err(err).Str("remote", remote.String()).Msg("skipping malformed datagram")
		}
	}
}
