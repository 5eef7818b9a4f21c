// Package credentials validates provider credentials and supplies them lazily,
// on every call, so they can rotate between operations.
package credentials

import (
	"sort"
	"strings"
)

// Credentials is one set of credential values. A nil Credentials means no
// credentials were supplied, which is different from an empty but present
// value such as ListCredentials{}.
type Credentials interface {
	// Len returns the number of values held.
	Len() int
	isCredentials()
}

// ListCredentials holds positional credential values in the order the
// provider declares its parameters.
type ListCredentials []string

func (c ListCredentials) Len() int     { return len(c) }
func (ListCredentials) isCredentials() {}

// Get returns the value at position i or "" when out of range.
func (c ListCredentials) Get(i int) string {
	if i < 0 || i >= len(c) {
		return ""
	}
	return c[i]
}

// MapCredentials holds credential values keyed by parameter name.
type MapCredentials map[string]string

func (c MapCredentials) Len() int     { return len(c) }
func (MapCredentials) isCredentials() {}

// Keys returns the parameter names in sorted order.
func (c MapCredentials) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type anonymousCredentials struct{}

func (anonymousCredentials) Len() int       { return 0 }
func (anonymousCredentials) isCredentials() {}
func (anonymousCredentials) String() string { return "anonymous" }

// Anonymous is returned by CheckValid for providers that need no
// credentials.
var Anonymous Credentials = anonymousCredentials{}

// IsAbsent reports whether c carries no credentials at all.
func IsAbsent(c Credentials) bool {
	return c == nil || c == Anonymous
}

// Values resolves c into parameter values ordered by params. List
// credentials are returned positionally; map credentials are looked up by
// name.
func Values(c Credentials, params []string) []string {
	values := make([]string, len(params))
	switch v := c.(type) {
	case ListCredentials:
		copy(values, v)
	case MapCredentials:
		for i, p := range params {
			values[i] = v[p]
		}
	}
	return values
}

// Redacted describes c without exposing any value, for logs.
func Redacted(c Credentials) string {
	switch v := c.(type) {
	case nil:
		return "<none>"
	case ListCredentials:
		return "list(" + strings.Repeat("*", len(v)) + ")"
	case MapCredentials:
		return "map(" + strings.Join(v.Keys(), ",") + ")"
	}
	return "anonymous"
}
