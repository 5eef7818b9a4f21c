package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/pkg/metrics"
)

var metricChecks = metrics.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: "credentials",
		Name:      "checks_total",
		Help:      "Credential checks made by gates, by provider and result.",
	},
	[]string{"provider", "result"},
)

// Gate hands out validated credentials to operations that need a remote
// identity. Construction never touches the supplier; every Current call asks
// the supplier again and re-validates, so nothing is cached between calls.
type Gate struct {
	provider    string
	requirement Requirement
	supplier    Supplier
	logger      *zap.Logger
}

// NewGate returns a Gate for provider. A nil logger disables logging.
func NewGate(provider string, requirement Requirement, supplier Supplier, logger *zap.Logger) *Gate {
	if supplier == nil {
		supplier = Static(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		provider:    provider,
		requirement: requirement,
		supplier:    supplier,
		logger:      logger,
	}
}

// Provider returns the provider name used in error messages.
func (g *Gate) Provider() string {
	return g.provider
}

// Requirement returns the shapes the gate validates against.
func (g *Gate) Requirement() Requirement {
	return g.requirement
}

// Current fetches the supplier's credentials and validates them.
func (g *Gate) Current(ctx context.Context) (Credentials, error) {
	candidate, err := g.supplier.Get(ctx)
	if err != nil {
		g.logger.Sugar().Errorw("credential supplier failed", "provider", g.provider, "err", err)
		return nil, fmt.Errorf("could not get credentials for %s: %w", g.provider, err)
	}
	creds, err := CheckValid(candidate, g.provider, g.requirement)
	metricChecks.WithLabelValues(g.provider, checkResult(g.requirement, err)).Inc()
	if err != nil {
		g.logger.Sugar().Warnw(
			"rejected credentials",
			"provider", g.provider,
			"supplied", Redacted(candidate),
			"err", err,
		)
		return nil, err
	}
	return creds, nil
}

func checkResult(requirement Requirement, err error) string {
	var invalid *InvalidCredentialsError
	switch {
	case errors.As(err, &invalid):
		return invalid.Kind.String()
	case len(requirement) == 0:
		return "anonymous"
	}
	return "valid"
}

// Lazy binds gate to a constructor for a domain specific credential value.
// The returned function runs the gate and build on every call.
func Lazy[T any](gate *Gate, build func(Credentials) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		creds, err := gate.Current(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		return build(creds)
	}
}
