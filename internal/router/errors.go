package router

import "errors"

var (
	// ErrInvalidRequest is returned before searching when the request cannot be routed:
	// empty tokens, identical tokens, or a non-positive amount.
	ErrInvalidRequest = errors.New("invalid route request")
	// ErrNoRouteFound is returned when enumeration completes without a single path
	// connecting the two tokens within the hop bound.
	ErrNoRouteFound = errors.New("no route found")
	// ErrSearchAborted is returned when the visit budget or deadline stopped the
	// search before any complete path was found.
	ErrSearchAborted = errors.New("route search aborted")
)
