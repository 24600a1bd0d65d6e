package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrEmptyDenylist    = fmt.Errorf("no denylist terms have been found")
	ErrInvalidCommand   = fmt.Errorf("invalid command")
	ErrStoreUnavailable = fmt.Errorf("message store unavailable")
)
