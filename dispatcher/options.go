package dispatcher

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-pldlink/logger"
)

const (
	DefaultWorkers      = 4
	MinWorkers          = 1
	MaxWorkers          = 64
	DefaultCloseTimeout = 3 * time.Second
)

type config struct {
	workers      int
	closeTimeout time.Duration
	logger       logger.Logger
}

// Option is a functional option for configuring a Dispatcher.
type Option interface {
	apply(*config) error
}

type optFunc func(*config) error

func (f optFunc) apply(cfg *config) error { return f(cfg) }

// WithWorkers sets the number of workers, in [MinWorkers, MaxWorkers].
func WithWorkers(n int) Option {
	return optFunc(func(cfg *config) error {
		if n < MinWorkers || n > MaxWorkers {
			return fmt.Errorf("dispatcher: workers %d out of range [%d, %d]", n, MinWorkers, MaxWorkers)
		}
		cfg.workers = n

		return nil
	})
}

// WithCloseTimeout sets how long Close waits when its context has no deadline.
func WithCloseTimeout(d time.Duration) Option {
	return optFunc(func(cfg *config) error {
		if d <= 0 {
			return errors.New("dispatcher: close timeout must be positive")
		}
		cfg.closeTimeout = d

		return nil
	})
}

// WithLogger sets the logger of the dispatcher.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *config) error {
		if l == nil {
			return errors.New("dispatcher: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
