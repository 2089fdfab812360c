// Package network holds socket helpers shared by the capture listener and the
// HTTP API.
package network

import (
	"context"
	"fmt"
	"net"
)

// ListenUDP binds a UDP socket with SO_REUSEADDR set.
func ListenUDP(ctx context.Context, addr string) (*net.UDPConn, error) {
	lc := ReuseAddrListenConfig()
	pc, err := lc.ListenPacket(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on udp %s: %w", addr, err)
	}
	return pc.(*net.UDPConn), nil
}

// ListenTCP binds a TCP listener with SO_REUSEADDR set.
func ListenTCP(ctx context.Context, addr string) (net.Listener, error) {
	lc := ReuseAddrListenConfig()
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on tcp %s: %w", addr, err)
	}
	return ln, nil
}
