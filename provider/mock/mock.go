// Package mock is an in-memory provider. It stores record sets per zone and
// serves them back one record at a time across pages, the way record-oriented
// vendor APIs do.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/grouping"
	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
	"github.com/sapslaj/rrsets/pkg/log"
	"github.com/sapslaj/rrsets/provider"
)

const DefaultPageSize = 100

// SeedRecordSet declares a record set in configuration. Records are given in
// presentation format.
type SeedRecordSet struct {
	Name      string
	Type      string
	Qualifier string
	TTL       int
	Records   []string
}

// SeedZone declares a zone and its record sets.
type SeedZone struct {
	Name       string
	RecordSets []SeedRecordSet
}

// MockProviderConfig configures the mock provider.
type MockProviderConfig struct {
	// Name overrides the provider name, mostly for credential messages.
	Name string
	// PageSize is the number of records served per page. Zero uses
	// DefaultPageSize and a negative size serves every listing as one page.
	PageSize int
	// RequiredCredentials makes the client demand credentials with these
	// parameters, checked on every operation.
	RequiredCredentials []string
	Zones               []SeedZone
}

type mockProvider struct {
	name        string
	requirement credentials.Requirement
}

func (p mockProvider) Name() string { return p.name }
func (p mockProvider) URL() string  { return "mem:" }
func (p mockProvider) CredentialRequirement() credentials.Requirement {
	return p.requirement
}

// Provider describes the mock binding. It takes no credentials.
var Provider provider.Provider = mockProvider{name: "mock"}

// record is what the in-memory "server" returns: one rdata per item.
type record struct {
	key     model.Key
	ttl     *uint32
	data    model.RecordData
	profile map[string]any
}

var normalizer = grouping.NormalizerFuncs[record]{
	KeyFunc: func(r record) model.Key { return r.key },
	ApplyFunc: func(b *model.Builder, r record) {
		if b.Len() == 0 {
			b.Name(r.key.Name).Type(r.key.Type).Qualifier(r.key.Qualifier)
			if r.ttl != nil {
				b.TTL(*r.ttl)
			}
			for k, v := range r.profile {
				b.Profile(k, v)
			}
		}
		b.Add(r.data)
	},
}

// Client is the mock provider client.
type Client struct {
	provider mockProvider
	gate     *credentials.Gate
	pageSize int
	logger   *zap.Logger

	mu    sync.RWMutex
	zones map[string][]model.ResourceRecordSet
}

var _ provider.Client = (*Client)(nil)

// NewMockClient builds a client from configuration. Credentials are only
// required when cfg.RequiredCredentials is set.
func NewMockClient(cfg MockProviderConfig, supplier credentials.Supplier) (*Client, error) {
	var requirement credentials.Requirement
	if len(cfg.RequiredCredentials) > 0 {
		requirement = credentials.NewRequirement("static", cfg.RequiredCredentials...)
	}
	return NewMockClientWithCredentials(cfg, requirement, supplier)
}

// NewMockClientWithCredentials builds a client whose every operation is
// gated by supplier against requirement.
func NewMockClientWithCredentials(
	cfg MockProviderConfig,
	requirement credentials.Requirement,
	supplier credentials.Supplier,
) (*Client, error) {
	p := mockProvider{name: cfg.Name, requirement: requirement}
	if p.name == "" {
		p.name = Provider.Name()
	}
	logger := log.MustNewLogger().Named("mock_provider")
	c := &Client{
		provider: p,
		gate:     credentials.NewGate(p.name, requirement, supplier, logger),
		pageSize: cfg.PageSize,
		logger:   logger,
		zones:    make(map[string][]model.ResourceRecordSet),
	}
	if c.pageSize == 0 {
		c.pageSize = DefaultPageSize
	}
	for _, z := range cfg.Zones {
		if z.Name == "" {
			return nil, fmt.Errorf("mock: zone without a name")
		}
		c.zones[z.Name] = make([]model.ResourceRecordSet, 0)
		for _, seed := range z.RecordSets {
			rrset, err := seed.build()
			if err != nil {
				return nil, fmt.Errorf("mock: zone %s: %w", z.Name, err)
			}
			c.put(z.Name, rrset)
		}
	}
	return c, nil
}

func (s SeedRecordSet) build() (model.ResourceRecordSet, error) {
	b := model.NewBuilder().Name(s.Name).Type(s.Type).Qualifier(s.Qualifier)
	if s.TTL > 0 {
		b.TTL(uint32(s.TTL))
	}
	records := make([]model.RecordData, 0, len(s.Records))
	for _, text := range s.Records {
		rdata, err := model.ParseRecordData(s.Type, text)
		if err != nil {
			return model.ResourceRecordSet{}, err
		}
		records = append(records, rdata)
	}
	return b.AddAll(records...).Build()
}

func (c *Client) Provider() provider.Provider {
	return c.provider
}

func (c *Client) Zones() provider.ZoneAPI {
	return zoneAPI{c}
}

type zoneAPI struct {
	c *Client
}

func (z zoneAPI) Iterator(ctx context.Context) paging.Seq[provider.Zone] {
	fetch := provider.GatedFetcher(z.c.gate, func(credentials.Credentials) paging.Fetcher[provider.Zone] {
		z.c.mu.RLock()
		zones := make([]provider.Zone, 0, len(z.c.zones))
		for name := range z.c.zones {
			zones = append(zones, provider.Zone{Name: name, ID: name})
		}
		z.c.mu.RUnlock()
		sort.Slice(zones, func(i, j int) bool { return zones[i].Name < zones[j].Name })
		return offsetPages(zones, z.c.pageSize)
	})
	return paging.NewIterator(ctx, fetch)
}

func (c *Client) RecordSetsInZone(zoneID string) (provider.ResourceRecordSetAPI, error) {
	return &provider.PagedRecordSets[record]{
		ProviderName: c.provider.name,
		List: func() paging.Fetcher[record] {
			return c.fetcher(zoneID, func(record) bool { return true })
		},
		ListByNameAndType: func(name, typ string) paging.Fetcher[record] {
			return c.fetcher(zoneID, func(r record) bool {
				return r.key.Name == name && r.key.Type == typ
			})
		},
		Normalizer: normalizer,
		PutFunc: func(ctx context.Context, rrset model.ResourceRecordSet) error {
			if _, err := c.gate.Current(ctx); err != nil {
				return err
			}
			if !c.hasZone(zoneID) {
				return fmt.Errorf("mock: zone %s: %w", zoneID, paging.ErrNotFound)
			}
			c.put(zoneID, rrset)
			c.logger.Sugar().Infow("put record set", "zone", zoneID, "key", rrset.Key().String())
			return nil
		},
		DeleteFunc: func(ctx context.Context, name, typ string) error {
			if _, err := c.gate.Current(ctx); err != nil {
				return err
			}
			c.delete(zoneID, name, typ)
			c.logger.Sugar().Infow("deleted record sets", "zone", zoneID, "name", name, "type", typ)
			return nil
		},
	}, nil
}

// fetcher flattens the zone into single-rdata records when the first page is
// requested and serves them pageSize at a time.
func (c *Client) fetcher(zoneID string, keep func(record) bool) paging.Fetcher[record] {
	return provider.GatedFetcher(c.gate, func(credentials.Credentials) paging.Fetcher[record] {
		c.mu.RLock()
		rrsets, ok := c.zones[zoneID]
		records := make([]record, 0)
		for _, rrset := range rrsets {
			for _, rdata := range rrset.Records {
				r := record{key: rrset.Key(), ttl: rrset.TTL, data: rdata, profile: rrset.Profile}
				if keep(r) {
					records = append(records, r)
				}
			}
		}
		c.mu.RUnlock()
		if !ok {
			return func(context.Context, paging.Cursor) (paging.Page[record], error) {
				return paging.Page[record]{}, fmt.Errorf("mock: zone %s: %w", zoneID, paging.ErrNotFound)
			}
		}
		return offsetPages(records, c.pageSize)
	})
}

func offsetPages[T any](items []T, size int) paging.Fetcher[T] {
	if size < 0 {
		return paging.SinglePage(items...)
	}
	return func(_ context.Context, cursor paging.Cursor) (paging.Page[T], error) {
		offset := 0
		if cursor != paging.NoCursor {
			var err error
			offset, err = strconv.Atoi(string(cursor))
			if err != nil || offset < 0 || offset > len(items) {
				return paging.Page[T]{}, fmt.Errorf("mock: invalid cursor %q", cursor)
			}
		}
		end := offset + size
		if end > len(items) {
			end = len(items)
		}
		page := paging.Page[T]{Items: items[offset:end]}
		if end < len(items) {
			page.Next = paging.Cursor(strconv.Itoa(end))
		}
		return page, nil
	}
}

func (c *Client) hasZone(zoneID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.zones[zoneID]
	return ok
}

// put replaces the set with the same key, keeping the zone sorted by key.
func (c *Client) put(zoneID string, rrset model.ResourceRecordSet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rrsets := c.zones[zoneID]
	key := rrset.Key()
	i := sort.Search(len(rrsets), func(i int) bool { return !keyLess(rrsets[i].Key(), key) })
	if i < len(rrsets) && rrsets[i].Key() == key {
		rrsets[i] = rrset
		return
	}
	rrsets = append(rrsets, model.ResourceRecordSet{})
	copy(rrsets[i+1:], rrsets[i:])
	rrsets[i] = rrset
	c.zones[zoneID] = rrsets
}

func (c *Client) delete(zoneID, name, typ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := make([]model.ResourceRecordSet, 0, len(c.zones[zoneID]))
	for _, rrset := range c.zones[zoneID] {
		if rrset.Name == name && rrset.Type == typ {
			continue
		}
		kept = append(kept, rrset)
	}
	if _, ok := c.zones[zoneID]; ok {
		c.zones[zoneID] = kept
	}
}

func keyLess(a, b model.Key) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	return a.Qualifier < b.Qualifier
}
