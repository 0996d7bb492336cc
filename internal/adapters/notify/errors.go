package notify

import "errors"

var (
	// ErrClosed is returned by Notify after Close.
	ErrClosed = errors.New("notify: notifier closed")
	// ErrConnect wraps broker dial and setup failures.
	ErrConnect = errors.New("notify: connect")
	// ErrPublish wraps publish failures.
	ErrPublish = errors.New("notify: publish")
)
