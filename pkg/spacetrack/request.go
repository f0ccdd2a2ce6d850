package spacetrack

import (
	"io"
	"time"
)

// Arg is one request argument. Value is encoded with EncodeValue unless the
// class sends it as a query parameter.
type Arg struct {
	Key   string
	Value any
}

// Args is an ordered argument list. Path segments are emitted in this order.
type Args []Arg

// A builds an Arg.
func A(key string, value any) Arg {
	return Arg{Key: key, Value: value}
}

// Has reports whether key is present.
func (a Args) Has(key string) bool {
	_, ok := a.Get(key)

	return ok
}

// Get returns the first value stored under key.
func (a Args) Get(key string) (any, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}

	return nil, false
}

// With returns a copy of a with key appended.
func (a Args) With(key string, value any) Args {
	out := make(Args, len(a), len(a)+1)
	copy(out, a)

	return append(out, Arg{Key: key, Value: value})
}

// Request is a generic Space-Track query.
type Request struct {
	// Class is the request class, e.g. "gp". Required.
	Class string

	// Controller scopes Class. Empty means the first controller that serves
	// Class.
	Controller string

	// Args are the predicate arguments, in path order.
	Args Args

	// IterLines streams the response line by line.
	IterLines bool

	// IterContent streams the response in chunks.
	IterContent bool

	// ParseTypes converts JSON field values using the class predicates.
	// Cannot be combined with a "format" argument.
	ParseTypes bool

	// Timeout overrides the client timeout for this request. Zero keeps it.
	Timeout time.Duration
}

// File is an upload body with an explicit file name. The "file" argument of
// an upload also accepts a bare io.Reader, []byte or string.
type File struct {
	Name   string
	Reader io.Reader
}
