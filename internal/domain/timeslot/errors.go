package timeslot

import "errors"

// ErrUnparseable reports a time string that matches no supported pattern.
var ErrUnparseable = errors.New("unparseable time")
