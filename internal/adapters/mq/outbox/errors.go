package outbox

import "errors"

// ErrClosed is returned by Next once the mailbox is closed and drained.
var ErrClosed = errors.New("outbox closed")
