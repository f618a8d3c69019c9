package poller

import "errors"

// ErrAttemptsExhausted is delivered through an operation's error callback
// when the attempt budget runs out before the probe reports completion.
// Callers can use it to tell "gave up waiting" apart from a probe failure.
var ErrAttemptsExhausted = errors.New("poll attempt budget exhausted")
