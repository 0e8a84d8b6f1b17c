package session

import (
	"context"
	"sync/atomic"

	"github.com/arloliu/go-pldlink/codec"
)

// Reservation is a place in the wire queue taken by Session.Reserve.
// It is single use: either Execute or Release consumes it.
type Reservation struct {
	s     *Session
	place chan struct{}
	used  atomic.Bool
}

// Execute runs cmd from the reserved place. ctx is honored while waiting for the
// earlier exchanges to finish, as with Session.Execute.
func (r *Reservation) Execute(ctx context.Context, cmd codec.Command) Outcome {
	if r.used.Swap(true) {
		return Failed(cmd, NewFailure(Aborted, "reservation already used", nil))
	}

	return r.s.run(ctx, cmd, r.place, true)
}

// Release gives up the place without running an exchange. It is a no-op after
// Execute or a previous Release.
func (r *Reservation) Release() {
	if r.used.Swap(true) {
		return
	}

	r.s.lock.leave(r.place)
}
