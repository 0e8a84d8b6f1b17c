package session

import (
	"errors"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/events"
	"github.com/arloliu/go-pldlink/logger"
)

// Option is a functional option for configuring a Session.
type Option interface {
	apply(*Session) error
}

type optFunc func(*Session) error

func (f optFunc) apply(s *Session) error { return f(s) }

// WithCodec sets the frame codec. The default is codec.FrameCodec.
func WithCodec(c codec.Codec) Option {
	return optFunc(func(s *Session) error {
		if c == nil {
			return errors.New("session: codec must not be nil")
		}
		s.codec = c

		return nil
	})
}

// WithLogger sets the logger of the session.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(s *Session) error {
		if l == nil {
			return errors.New("session: logger must not be nil")
		}
		s.logger = l

		return nil
	})
}

// WithHub publishes frame, packet and failure events to h.
func WithHub(h *events.Hub) Option {
	return optFunc(func(s *Session) error {
		s.hub = h
		return nil
	})
}
