package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrUnsupportedType is wrapped by PartitionError when no parser handles a file extension.
	ErrUnsupportedType = errors.New("file type not supported")

	// ErrInvalidTopK is returned when a search asks for fewer than one result.
	ErrInvalidTopK = errors.New("topK must be a positive integer")
)

// PartitionError reports a file that could not be partitioned.
type PartitionError struct {
	Path string
	Err  error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %s: %v", e.Path, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// EmptyInputError reports a build whose inputs produced no chunks.
type EmptyInputError struct {
	Key   string
	Paths []string
}

func (e *EmptyInputError) Error() string {
	if len(e.Paths) == 0 {
		return fmt.Sprintf("store %q: no input paths", e.Key)
	}
	return fmt.Sprintf("store %q: no chunks produced from %s", e.Key, strings.Join(e.Paths, ", "))
}

// UnknownStoreError reports a query against a key that was never built.
type UnknownStoreError struct {
	Key string
}

func (e *UnknownStoreError) Error() string {
	return fmt.Sprintf("retriever %q not found", e.Key)
}

// AdapterTimeoutError reports an external call that exceeded its deadline.
type AdapterTimeoutError struct {
	Adapter string
	Err     error
}

func (e *AdapterTimeoutError) Error() string {
	return fmt.Sprintf("%s adapter timed out: %v", e.Adapter, e.Err)
}

func (e *AdapterTimeoutError) Unwrap() error { return e.Err }

// IsUnknownStore reports whether err is or wraps an UnknownStoreError.
func IsUnknownStore(err error) bool {
	var target *UnknownStoreError
	return errors.As(err, &target)
}

// WrapTimeout returns an AdapterTimeoutError for adapter when err is a
// deadline or network timeout, and err unchanged otherwise.
func WrapTimeout(adapter string, err error) error {
	if err == nil {
		return nil
	}
	var terr *AdapterTimeoutError
	if errors.As(err, &terr) {
		return err
	}
	var nerr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()) {
		return &AdapterTimeoutError{Adapter: adapter, Err: err}
	}
	return err
}
