package dispatcher

import "errors"

// ErrClosed is returned by Submit after Close has been called.
var ErrClosed = errors.New("dispatcher: closed")
