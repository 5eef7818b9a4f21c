// Package custom binds a provider whose listings are produced by Lua
// functions from the configuration file.
package custom

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	luar "layeh.com/gopher-luar"

	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/grouping"
	"github.com/sapslaj/rrsets/model"
	"github.com/sapslaj/rrsets/paging"
	"github.com/sapslaj/rrsets/pkg/log"
	"github.com/sapslaj/rrsets/provider"
)

type luaProvider struct {
	name        string
	requirement credentials.Requirement
}

func (p luaProvider) Name() string { return p.name }
func (p luaProvider) URL() string  { return "lua:" }
func (p luaProvider) CredentialRequirement() credentials.Requirement {
	return p.requirement
}

// Provider describes the Lua binding. Credentials are whatever the
// configuration declares as required.
var Provider provider.Provider = luaProvider{name: "lua"}

// LuaProviderConfig is mapped from the provider's config table.
type LuaProviderConfig struct {
	RequiredCredentials []string
}

// LuaFuncs are the listing functions of a declaration. Each returns one page
// as a table of items plus the cursor of the next page (nil when done):
//
//	zones(cursor, credentials) -> { { name = "example.com.", id = "..." } }, next
//	records(zone_id, cursor, credentials) -> { { name, type, ttl, data, qualifier } }, next
//
// records may return { not_found = true } when the zone does not exist; the
// listing is then empty.
type LuaFuncs struct {
	State *lua.LState
	// Mutex guards State, which is shared with the rest of the configuration.
	Mutex   sync.Locker
	Zones   *lua.LFunction
	Records *lua.LFunction
}

type record struct {
	key  model.Key
	ttl  *uint32
	data model.RecordData
}

var normalizer = grouping.NormalizerFuncs[record]{
	KeyFunc: func(r record) model.Key { return r.key },
	ApplyFunc: func(b *model.Builder, r record) {
		if b.Len() == 0 {
			b.Name(r.key.Name).Type(r.key.Type).Qualifier(r.key.Qualifier)
			if r.ttl != nil {
				b.TTL(*r.ttl)
			}
		}
		b.Add(r.data)
	},
}

type customLuaProvider struct {
	provider luaProvider
	funcs    LuaFuncs
	gate     *credentials.Gate
	logger   *zap.Logger
}

func NewCustomLuaProvider(cfg LuaProviderConfig, funcs LuaFuncs, supplier credentials.Supplier) (provider.Client, error) {
	if funcs.State == nil || funcs.Zones == nil || funcs.Records == nil {
		return nil, fmt.Errorf("lua: zones and records functions are required")
	}
	if funcs.Mutex == nil {
		funcs.Mutex = &sync.Mutex{}
	}
	p := luaProvider{name: Provider.Name()}
	if len(cfg.RequiredCredentials) > 0 {
		p.requirement = credentials.NewRequirement("static", cfg.RequiredCredentials...)
	}
	logger := log.MustNewLogger().Named("custom_lua_provider")
	return &customLuaProvider{
		provider: p,
		funcs:    funcs,
		gate:     credentials.NewGate(p.name, p.requirement, supplier, logger),
		logger:   logger,
	}, nil
}

func (p *customLuaProvider) Provider() provider.Provider {
	return p.provider
}

func (p *customLuaProvider) Zones() provider.ZoneAPI {
	return zoneAPI{p: p}
}

type zoneAPI struct {
	p *customLuaProvider
}

func (z zoneAPI) Iterator(ctx context.Context) paging.Seq[provider.Zone] {
	fetch := provider.GatedFetcher(z.p.gate, func(creds credentials.Credentials) paging.Fetcher[provider.Zone] {
		return func(ctx context.Context, cursor paging.Cursor) (paging.Page[provider.Zone], error) {
			var page paging.Page[provider.Zone]
			items, next, err := z.p.call(ctx, z.p.funcs.Zones, cursorValue(cursor), z.p.credentialsValue(creds))
			if err != nil {
				return page, fmt.Errorf("could not list zones: %w", err)
			}
			page.Next = next
			for i, item := range items {
				name := lua.LVAsString(item.RawGetString("name"))
				if name == "" {
					return page, fmt.Errorf("could not list zones: item %d has no name", i+1)
				}
				id := lua.LVAsString(item.RawGetString("id"))
				if id == "" {
					id = name
				}
				page.Items = append(page.Items, provider.Zone{Name: name, ID: id})
			}
			return page, nil
		}
	})
	return paging.NewIterator(ctx, fetch)
}

func (p *customLuaProvider) RecordSetsInZone(zoneID string) (provider.ResourceRecordSetAPI, error) {
	return &provider.PagedRecordSets[record]{
		ProviderName: p.provider.name,
		List: func() paging.Fetcher[record] {
			return provider.GatedFetcher(p.gate, func(creds credentials.Credentials) paging.Fetcher[record] {
				return p.recordFetcher(zoneID, creds)
			})
		},
		Normalizer: normalizer,
		NotFound:   paging.IsNotFound,
	}, nil
}

func (p *customLuaProvider) recordFetcher(zoneID string, creds credentials.Credentials) paging.Fetcher[record] {
	return func(ctx context.Context, cursor paging.Cursor) (paging.Page[record], error) {
		var page paging.Page[record]
		items, next, err := p.call(ctx, p.funcs.Records, lua.LString(zoneID), cursorValue(cursor), p.credentialsValue(creds))
		if err != nil {
			return page, fmt.Errorf("could not list records in %s: %w", zoneID, err)
		}
		page.Next = next
		for i, item := range items {
			r, err := toRecord(item)
			if err != nil {
				return page, fmt.Errorf("could not list records in %s: item %d: %w", zoneID, i+1, err)
			}
			page.Items = append(page.Items, r)
		}
		p.logger.Sugar().Debugw("listed records", "zone", zoneID, "records", len(page.Items), "next", next)
		return page, nil
	}
}

func toRecord(item *lua.LTable) (record, error) {
	r := record{
		key: model.Key{
			Name:      model.NormalizeName(lua.LVAsString(item.RawGetString("name"))),
			Type:      lua.LVAsString(item.RawGetString("type")),
			Qualifier: lua.LVAsString(item.RawGetString("qualifier")),
		},
	}
	if r.key.Name == "" || r.key.Type == "" {
		return r, fmt.Errorf("name and type are required")
	}
	if ttl, ok := item.RawGetString("ttl").(lua.LNumber); ok {
		v := uint32(ttl)
		r.ttl = &v
	}
	data, err := model.ParseRecordData(r.key.Type, lua.LVAsString(item.RawGetString("data")))
	if err != nil {
		return r, err
	}
	r.data = data
	return r, nil
}

// call runs fn and splits its two results into the page items and the next
// cursor. A nil item list is an empty page.
func (p *customLuaProvider) call(ctx context.Context, fn *lua.LFunction, args ...lua.LValue) ([]*lua.LTable, paging.Cursor, error) {
	p.funcs.Mutex.Lock()
	defer p.funcs.Mutex.Unlock()
	L := p.funcs.State
	L.SetContext(ctx)
	defer L.RemoveContext()

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true}, args...); err != nil {
		return nil, paging.NoCursor, err
	}
	next := L.Get(-1)
	ret := L.Get(-2)
	L.Pop(2)

	var cursor paging.Cursor
	if next != lua.LNil {
		cursor = paging.Cursor(lua.LVAsString(next))
	}
	if ret == lua.LNil {
		return nil, cursor, nil
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, paging.NoCursor, fmt.Errorf("function returned %s, want table or nil", ret.Type())
	}
	if lua.LVAsBool(tbl.RawGetString("not_found")) {
		return nil, paging.NoCursor, paging.ErrNotFound
	}
	items := make([]*lua.LTable, 0, tbl.MaxN())
	for i := 1; i <= tbl.MaxN(); i++ {
		item, ok := tbl.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, paging.NoCursor, fmt.Errorf("item %d is %s, want table", i, tbl.RawGetInt(i).Type())
		}
		items = append(items, item)
	}
	return items, cursor, nil
}

func cursorValue(cursor paging.Cursor) lua.LValue {
	if cursor == paging.NoCursor {
		return lua.LNil
	}
	return lua.LString(cursor)
}

// credentialsValue hands validated credentials to Lua through luar: a list
// indexes from 1 and a map by parameter name. Anonymous is nil.
func (p *customLuaProvider) credentialsValue(creds credentials.Credentials) lua.LValue {
	p.funcs.Mutex.Lock()
	defer p.funcs.Mutex.Unlock()
	switch c := creds.(type) {
	case credentials.ListCredentials:
		return luar.New(p.funcs.State, []string(c))
	case credentials.MapCredentials:
		return luar.New(p.funcs.State, map[string]string(c))
	}
	return lua.LNil
}
