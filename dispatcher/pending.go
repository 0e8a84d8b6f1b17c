package dispatcher

import (
	"context"
	"sync"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/session"
)

// CompletionFunc receives the Outcome of a submitted command.
type CompletionFunc = func(session.Outcome)

// Pending is the handle of a submitted command. It resolves exactly once.
type Pending struct {
	id         uint64
	cmd        codec.Command
	onComplete CompletionFunc

	once    sync.Once
	done    chan struct{}
	outcome session.Outcome
}

func newPending(id uint64, cmd codec.Command, onComplete CompletionFunc) *Pending {
	return &Pending{
		id:         id,
		cmd:        cmd,
		onComplete: onComplete,
		done:       make(chan struct{}),
	}
}

// ID returns the submission sequence number, starting at 1.
func (p *Pending) ID() uint64 { return p.id }

// Command returns the submitted command.
func (p *Pending) Command() codec.Command { return p.cmd }

// Done is closed once the outcome is available.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Resolved reports whether the outcome is available.
func (p *Pending) Resolved() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// Outcome returns the outcome without waiting. ok is false while unresolved.
func (p *Pending) Outcome() (out session.Outcome, ok bool) {
	if !p.Resolved() {
		return out, false
	}

	return p.outcome, true
}

// Wait blocks until the outcome is available or ctx ends.
func (p *Pending) Wait(ctx context.Context) (session.Outcome, error) {
	select {
	case <-p.done:
		return p.outcome, nil
	case <-ctx.Done():
		return session.Outcome{}, ctx.Err()
	}
}

// resolve stores out and reports whether this call was the one that resolved p.
func (p *Pending) resolve(out session.Outcome) bool {
	resolved := false
	p.once.Do(func() {
		p.outcome = out
		close(p.done)
		resolved = true
	})

	return resolved
}
