package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/yashrajoria/catalog-service/repository"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound means no cascade step resolved the token.
	ErrNotFound = errors.New("category not found")
	// ErrAmbiguousMatch tags data-quality signals; Resolve never returns it.
	ErrAmbiguousMatch = errors.New("ambiguous category match")
	// ErrCycleDetected means a parent chain loops back on itself.
	ErrCycleDetected = errors.New("category graph contains a cycle")
	// ErrStorageTimeout and ErrStorageUnavailable are transient.
	ErrStorageTimeout     = errors.New("storage timeout")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// StorageError wraps a failed storage round-trip with the operation name.
type StorageError struct {
	Op   string
	Kind error
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// IsRetryable reports whether err is a transient storage failure.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageTimeout) || errors.Is(err, ErrStorageUnavailable)
}

func storageErr(op string, err error) error {
	if err == nil || errors.Is(err, repository.ErrNotFound) {
		return err
	}
	kind := ErrStorageUnavailable
	if errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err) {
		kind = ErrStorageTimeout
	}
	return &StorageError{Op: op, Kind: kind, Err: err}
}

func cycleErr(id string) error {
	return fmt.Errorf("%w: category %s reached twice", ErrCycleDetected, id)
}
