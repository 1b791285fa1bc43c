package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownQuery is matched by every *UnknownQueryError.
var ErrUnknownQuery = errors.New("unknown query")

// UnknownQueryError reports an operation on a key that was never registered.
type UnknownQueryError struct {
	Key   string
	Known []string
}

func (e *UnknownQueryError) Error() string {
	return fmt.Sprintf("query %q does not exist - prepared queries: [%s]", e.Key, strings.Join(e.Known, ","))
}

// Is lets errors.Is(err, ErrUnknownQuery) match.
func (e *UnknownQueryError) Is(target error) bool {
	return target == ErrUnknownQuery
}

// FetchError wraps a failure reported by an Engine. It is stored in the
// record state and handed to subscribers, never returned to callers.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
