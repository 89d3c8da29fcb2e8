package channel

import "errors"

// ErrNoInbox indicates a channel's inbox callback has not been set.
var ErrNoInbox = errors.New("channel: inbox not set")
