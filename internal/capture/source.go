// Package capture feeds message bodies into the dispatcher. Sources push each
// complete Photon message through an emit callback; the callee owns the slice.
package capture

import (
	"context"
)

// Source produces message bodies until its input ends or ctx is cancelled.
type Source interface {
	Run(ctx context.Context, emit func(payload []byte)) error
}

// ChanSource emits every slice received on a channel. It ends when the channel
// is closed.
type ChanSource struct {
	C <-chan []byte
}

// Run implements Source.
func (s ChanSource) Run(ctx context.Context, emit func([]byte)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-s.C:
			if !ok {
				return nil
			}
			emit(payload)
		}
	}
}
