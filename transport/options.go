package transport

import (
	"errors"

	"github.com/arloliu/go-pldlink/logger"
)

// Config holds the construction-time settings of a Transport.
type Config struct {
	opener   PortOpener
	lister   PortLister
	handlers []ConnStateChangeHandler
	logger   logger.Logger
}

// Option is a functional option for configuring a Transport.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		opener: SerialOpener,
		lister: SerialLister,
		logger: logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// WithLogger sets the logger of the transport.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}

// WithPortOpener replaces the function used to open ports.
// The default opens real serial devices with go.bug.st/serial.
func WithPortOpener(opener PortOpener) Option {
	return optFunc(func(cfg *Config) error {
		if opener == nil {
			return errors.New("transport: port opener must not be nil")
		}
		cfg.opener = opener

		return nil
	})
}

// WithPortLister replaces the function used to enumerate ports.
func WithPortLister(lister PortLister) Option {
	return optFunc(func(cfg *Config) error {
		if lister == nil {
			return errors.New("transport: port lister must not be nil")
		}
		cfg.lister = lister

		return nil
	})
}

// WithStateHandler registers handlers invoked on every connection state change.
func WithStateHandler(handlers ...ConnStateChangeHandler) Option {
	return optFunc(func(cfg *Config) error {
		cfg.handlers = append(cfg.handlers, handlers...)
		return nil
	})
}
