package service

import "errors"

var (
	// ErrStoreUnavailable is returned by stored-mode reads when the store cannot be reached.
	ErrStoreUnavailable = errors.New("snapshot store unavailable")
	// ErrPersistenceWrite marks snapshots that could not be written after the retry.
	ErrPersistenceWrite = errors.New("snapshot write failed")
	// ErrControllerClosed is returned once the mode controller has shut down.
	ErrControllerClosed = errors.New("mode controller closed")
)
