// Package controller walks every configured provider on an interval and keeps
// the last inventory of zones and record sets.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
	"github.com/sapslaj/rrsets/provider"
)

// Snapshot is the result of one inventory walk.
type Snapshot struct {
	TakenAt   time.Time          `json:"takenAt" yaml:"takenAt"`
	Providers []ProviderSnapshot `json:"providers" yaml:"providers"`
}

type ProviderSnapshot struct {
	Name  string         `json:"name" yaml:"name"`
	Kind  string         `json:"kind" yaml:"kind"`
	Zones []ZoneSnapshot `json:"zones" yaml:"zones"`
	Error string         `json:"error,omitempty" yaml:"error,omitempty"`
}

type ZoneSnapshot struct {
	Name       string                    `json:"name" yaml:"name"`
	ID         string                    `json:"id" yaml:"id"`
	RecordSets []model.ResourceRecordSet `json:"recordSets" yaml:"recordSets"`
	Error      string                    `json:"error,omitempty" yaml:"error,omitempty"`
}

type Controller struct {
	Providers []provider.NamedClient
	// The interval between individual inventory walks
	Interval time.Duration
	// Logger instance
	Logger *zap.Logger
	// The nextRunAt used for throttling walks
	nextRunAt time.Time
	// The nextRunAtMux is for atomic updating of nextRunAt
	nextRunAtMux sync.Mutex

	snapshotMux sync.RWMutex
	snapshot    *Snapshot
}

// RunOnce walks every provider once and replaces the snapshot. A provider or
// zone that fails is recorded in the snapshot and its error is returned
// alongside the others; the rest of the walk still happens.
func (c *Controller) RunOnce(ctx context.Context) error {
	start := time.Now()
	snapshot := &Snapshot{
		TakenAt:   start.UTC(),
		Providers: make([]ProviderSnapshot, 0, len(c.Providers)),
	}
	var errs error
	for _, named := range c.Providers {
		ps, err := c.walkProvider(ctx, named)
		if err != nil {
			c.Logger.Sugar().Errorw(
				"error walking provider",
				"provider", named.Name,
				"err", err,
			)
			errs = multierr.Append(errs, err)
		}
		snapshot.Providers = append(snapshot.Providers, ps)
	}

	c.snapshotMux.Lock()
	c.snapshot = snapshot
	c.snapshotMux.Unlock()

	duration := time.Since(start).Seconds()
	MetricLastRunTimestamp.SetToCurrentTime()
	MetricLastRunDurationSeconds.Set(duration)
	MetricRunDurationSeconds.Observe(duration)
	if errs != nil {
		MetricRuns.WithLabelValues("failure").Inc()
	} else {
		MetricRuns.WithLabelValues("success").Inc()
	}
	return errs
}

func (c *Controller) walkProvider(ctx context.Context, named provider.NamedClient) (ProviderSnapshot, error) {
	ps := ProviderSnapshot{
		Name:  named.Name,
		Kind:  named.Client.Provider().Name(),
		Zones: make([]ZoneSnapshot, 0),
	}
	zones, err := paging.Collect(named.Client.Zones().Iterator(ctx))
	if err != nil {
		MetricProviderUp.WithLabelValues(named.Name).Set(0)
		ps.Error = err.Error()
		return ps, fmt.Errorf("provider %s: could not list zones: %w", named.Name, err)
	}
	MetricZones.WithLabelValues(named.Name).Set(float64(len(zones)))

	var errs error
	for _, zone := range zones {
		zs, err := c.walkZone(ctx, named, zone)
		if err != nil {
			zs.Error = err.Error()
			errs = multierr.Append(errs, fmt.Errorf("provider %s: zone %s: %w", named.Name, zone.Name, err))
		}
		MetricRecordSets.WithLabelValues(named.Name, zone.Name).Set(float64(len(zs.RecordSets)))
		ps.Zones = append(ps.Zones, zs)
	}
	if errs != nil {
		MetricProviderUp.WithLabelValues(named.Name).Set(0)
		return ps, errs
	}
	MetricProviderUp.WithLabelValues(named.Name).Set(1)
	return ps, nil
}

func (c *Controller) walkZone(ctx context.Context, named provider.NamedClient, zone provider.Zone) (ZoneSnapshot, error) {
	zs := ZoneSnapshot{
		Name:       zone.Name,
		ID:         zone.ID,
		RecordSets: make([]model.ResourceRecordSet, 0),
	}
	api, err := named.Client.RecordSetsInZone(zone.ID)
	if err != nil {
		return zs, err
	}
	it := api.Iterator(ctx)
	for it.Next() {
		zs.RecordSets = append(zs.RecordSets, it.Value())
	}
	c.Logger.Sugar().Debugw(
		"walked zone",
		"provider", named.Name,
		"zone", zone.Name,
		"record_sets", len(zs.RecordSets),
	)
	return zs, it.Err()
}

// Snapshot returns the last inventory, or nil before the first run.
func (c *Controller) Snapshot() *Snapshot {
	c.snapshotMux.RLock()
	defer c.snapshotMux.RUnlock()
	return c.snapshot
}

// ScheduleRunOnce makes the next Run iteration walk immediately.
func (c *Controller) ScheduleRunOnce(now time.Time) {
	c.nextRunAtMux.Lock()
	defer c.nextRunAtMux.Unlock()
	c.nextRunAt = now
}

func (c *Controller) ShouldRunOnce(now time.Time) bool {
	c.nextRunAtMux.Lock()
	defer c.nextRunAtMux.Unlock()
	if now.Before(c.nextRunAt) {
		return false
	}
	c.nextRunAt = now.Add(c.Interval)
	return true
}

// Run runs RunOnce in a loop with a delay until context is canceled. Walk
// errors are logged and the loop carries on.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		if c.ShouldRunOnce(time.Now()) {
			if err := c.RunOnce(ctx); err != nil {
				c.Logger.Sugar().Warnw("inventory walk finished with errors", "err", err)
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			c.Logger.Info("Terminating main controller loop")
			return
		}
	}
}
