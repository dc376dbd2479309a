package recipestore

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownField is returned when setting a field that is not editable.
	ErrUnknownField = errors.New("unknown recipe field")

	// ErrNoSelection is returned by operations that need a selected recipe.
	ErrNoSelection = errors.New("no recipe selected")
)

// NetworkError reports a request to the recipe service that could not complete.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError reports a non-success status returned by the recipe service.
type RemoteError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Status, e.Body)
}

// ErrorKind classifies err for operator logs: "network", "remote" or "other".
func ErrorKind(err error) string {
	var netErr *NetworkError
	var remoteErr *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &netErr):
		return "network"
	case errors.As(err, &remoteErr):
		return "remote"
	default:
		return "other"
	}
}
