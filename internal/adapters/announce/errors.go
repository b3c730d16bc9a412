package announce

import "errors"

// ErrEmptyCommand is returned when no speech command is configured.
var ErrEmptyCommand = errors.New("speech command is empty")
