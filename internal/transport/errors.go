package transport

import "errors"

// ErrTransport marks network or HTTP send failures surfaced to callers
// after retry exhaustion.
var ErrTransport = errors.New("transport error")
