package credentials

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
)

// Supplier yields the credentials current at the time of the call. It may
// return different values on successive calls and returns nil, not an error,
// when no credentials are available right now. Errors are reserved for a
// failing backing store.
//
// Suppliers are shared between operations and must be safe for concurrent
// use.
type Supplier interface {
	Get(ctx context.Context) (Credentials, error)
}

// SupplierFunc adapts a function to Supplier.
type SupplierFunc func(ctx context.Context) (Credentials, error)

func (f SupplierFunc) Get(ctx context.Context) (Credentials, error) {
	return f(ctx)
}

// Static always supplies c. Static(nil) models anonymous use.
func Static(c Credentials) Supplier {
	return SupplierFunc(func(context.Context) (Credentials, error) {
		return c, nil
	})
}

type sequenceSupplier struct {
	index  atomic.Int64
	values []Credentials
}

// Sequence supplies each value once, in order, then nothing. It simulates a
// remote store whose credentials rotate and finally get revoked.
func Sequence(values ...Credentials) Supplier {
	return &sequenceSupplier{values: values}
}

func (s *sequenceSupplier) Get(context.Context) (Credentials, error) {
	i := s.index.Add(1) - 1
	if i >= int64(len(s.values)) {
		return nil, nil
	}
	return s.values[i], nil
}

// Env reads credentials from environment variables named prefix+param for
// each param of the first shape that is fully set. Each variable may instead
// be given as prefix+param+"_FILE" pointing at a file holding the value, the
// way container secrets are mounted. Variables are re-read on every call.
//
// When no shape is complete but some variables are set, those values are
// supplied as they are so validation reports them as incorrect rather than
// absent.
func Env(prefix string, requirement Requirement) Supplier {
	return SupplierFunc(func(context.Context) (Credentials, error) {
		partial := MapCredentials{}
		for _, shape := range requirement {
			values := make(MapCredentials, len(shape.Parameters))
			for _, p := range shape.Parameters {
				if v := envOrFile(envKey(prefix, p)); v != "" {
					values[p] = v
					partial[p] = v
				}
			}
			if len(shape.Parameters) > 0 && len(values) == len(shape.Parameters) {
				return values, nil
			}
		}
		if len(partial) > 0 {
			return partial, nil
		}
		return nil, nil
	})
}

// envKey turns "accessKey" into "ACCESS_KEY" under prefix.
func envKey(prefix, param string) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for i, r := range param {
		if i > 0 && r >= 'A' && r <= 'Z' {
			sb.WriteByte('_')
		}
		sb.WriteRune(r)
	}
	return strings.ToUpper(sb.String())
}

func envOrFile(key string) string {
	if path := os.Getenv(key + "_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return os.Getenv(key)
}
