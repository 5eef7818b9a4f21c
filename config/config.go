package config

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/config/luahttp"
	"github.com/sapslaj/rrsets/config/lualog"
	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/pkg/log"
	"github.com/sapslaj/rrsets/provider"
	"github.com/sapslaj/rrsets/provider/aws"
	"github.com/sapslaj/rrsets/provider/clouddns"
	"github.com/sapslaj/rrsets/provider/custom"
	"github.com/sapslaj/rrsets/provider/mock"
)

// Bindings lists the provider kinds a configuration file may declare.
var Bindings = provider.NewRegistry(aws.Route53, clouddns.CloudDNS, custom.Provider, mock.Provider)

const (
	DefaultInventoryInterval = 300
	DefaultInventoryListen   = ":9100"
)

// InventoryConfig configures the serve loop.
type InventoryConfig struct {
	// Interval between walks, in seconds.
	Interval int
	Listen   string
}

// Config is an interface for configuration providers for provider clients
// and the inventory loop.
type Config interface {
	Parse() error
	Providers(ctx context.Context) ([]provider.NamedClient, error)
	Inventory() (InventoryConfig, error)
	Close()
}

type luaConfig struct {
	logger               *zap.Logger
	configFileName       string
	state                *lua.LState
	stateMu              sync.Mutex
	providerDeclarations map[string]*lua.LTable
	inventoryDeclaration *lua.LTable
}

// NewLuaConfig builds new Lua script configuration provider.
func NewLuaConfig(configFileName string) (Config, error) {
	c := &luaConfig{
		logger:         log.MustNewLogger().Named("lua_config"),
		configFileName: configFileName,
	}
	return c, nil
}

// Parse executes the Lua script and collects provider declarations. The Lua
// state stays open afterwards since credential functions run in it.
func (c *luaConfig) Parse() error {
	c.Close()
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = lua.NewState()
	// lualog records the script position itself
	c.state.PreloadModule("log", lualog.NewLoader(c.logger.WithOptions(zap.WithCaller(false))))
	c.state.PreloadModule("http", luahttp.NewLoader())
	err := c.state.DoFile(c.configFileName)
	if err != nil {
		newErr := fmt.Errorf("config: failed to execute configuration file %s: %w", c.configFileName, err)
		c.logger.Error(newErr.Error())
		return newErr
	}
	t, ok := c.state.Get(-1).(*lua.LTable)
	if !ok {
		err = fmt.Errorf("config: config file %q does not return a table", c.configFileName)
		c.logger.Error(err.Error())
		return err
	}
	c.state.Pop(1)

	providerDeclarations := make(map[string]*lua.LTable)
	switch pt := t.RawGetString("providers").(type) {
	case *lua.LNilType:
	case *lua.LTable:
		pt.ForEach(func(providerName, providerDeclaration lua.LValue) {
			pd, ok := providerDeclaration.(*lua.LTable)
			if !ok {
				err = multierr.Append(err, fmt.Errorf("config: provider %s is not a table", providerName))
				return
			}
			providerDeclarations[providerName.String()] = pd
		})
	default:
		err = fmt.Errorf("config: providers must be a table, got %s", pt.Type())
	}
	if err != nil {
		c.logger.Error(err.Error())
		return err
	}
	c.providerDeclarations = providerDeclarations

	switch it := t.RawGetString("inventory").(type) {
	case *lua.LTable:
		c.inventoryDeclaration = it
	case *lua.LNilType:
		c.inventoryDeclaration = nil
	default:
		return fmt.Errorf("config: inventory must be a table, got %s", it.Type())
	}
	return nil
}

// Close releases the Lua state. Suppliers created from it stop working.
func (c *luaConfig) Close() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state != nil && !c.state.IsClosed() {
		c.state.Close()
	}
}

// Providers builds a client for every declaration. Declarations that fail are
// skipped and their errors combined, so one bad entry does not hide the
// others.
func (c *luaConfig) Providers(ctx context.Context) ([]provider.NamedClient, error) {
	names := make([]string, 0, len(c.providerDeclarations))
	for name := range c.providerDeclarations {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	providers := make([]provider.NamedClient, 0, len(names))
	for _, providerName := range names {
		providerLogger := c.logger.With(zap.String("provider", providerName)).Sugar()
		providerLogger.Infof("config: processing provider %s", providerName)

		client, err := c.newClient(ctx, providerName, c.providerDeclarations[providerName])
		if err != nil {
			providerLogger.Errorw("error configuring provider", "err", err)
			errs = multierr.Append(errs, fmt.Errorf("config: provider %s: %w", providerName, err))
			continue
		}
		providers = append(providers, provider.NamedClient{
			Name:   providerName,
			Client: client,
		})
		providerLogger.Info("config: Finished configuration")
	}
	return providers, errs
}

func (c *luaConfig) newClient(ctx context.Context, providerName string, decl *lua.LTable) (provider.Client, error) {
	kind := lua.LVAsString(decl.RawGetInt(1))
	binding, err := Bindings.Get(kind)
	if err != nil {
		return nil, err
	}
	c.logger.Sugar().Infow("config: provider kind", "provider", providerName, "kind", kind)

	providerConfig, ok := decl.RawGetString("config").(*lua.LTable)
	if !ok {
		if decl.RawGetString("config") != lua.LNil {
			return nil, fmt.Errorf("config could not convert value %#v to LTable", decl.RawGetString("config"))
		}
		providerConfig = c.state.NewTable()
	}

	switch kind {
	case aws.Route53.Name():
		var r53Config aws.Route53ProviderConfig
		if err := gluamapper.Map(providerConfig, &r53Config); err != nil {
			return nil, err
		}
		supplier, err := c.supplier(decl, binding.CredentialRequirement())
		if err != nil {
			return nil, err
		}
		return aws.NewRoute53Provider(ctx, r53Config, supplier)
	case clouddns.CloudDNS.Name():
		var cdnsConfig clouddns.CloudDNSProviderConfig
		if err := gluamapper.Map(providerConfig, &cdnsConfig); err != nil {
			return nil, err
		}
		supplier, err := c.supplier(decl, binding.CredentialRequirement())
		if err != nil {
			return nil, err
		}
		return clouddns.NewCloudDNSProvider(cdnsConfig, supplier), nil
	case mock.Provider.Name():
		var mockConfig mock.MockProviderConfig
		if err := gluamapper.Map(providerConfig, &mockConfig); err != nil {
			return nil, err
		}
		var requirement credentials.Requirement
		if len(mockConfig.RequiredCredentials) > 0 {
			requirement = credentials.NewRequirement("static", mockConfig.RequiredCredentials...)
		}
		supplier, err := c.supplier(decl, requirement)
		if err != nil {
			return nil, err
		}
		return mock.NewMockClient(mockConfig, supplier)
	case custom.Provider.Name():
		var customConfig custom.LuaProviderConfig
		if err := gluamapper.Map(providerConfig, &customConfig); err != nil {
			return nil, err
		}
		funcs := custom.LuaFuncs{State: c.state, Mutex: &c.stateMu}
		funcs.Zones, _ = decl.RawGetString("zones").(*lua.LFunction)
		funcs.Records, _ = decl.RawGetString("records").(*lua.LFunction)
		var requirement credentials.Requirement
		if len(customConfig.RequiredCredentials) > 0 {
			requirement = credentials.NewRequirement("static", customConfig.RequiredCredentials...)
		}
		supplier, err := c.supplier(decl, requirement)
		if err != nil {
			return nil, err
		}
		return custom.NewCustomLuaProvider(customConfig, funcs, supplier)
	}
	return nil, fmt.Errorf("provider kind %q has no configuration", kind)
}

// supplier reads the credentials of a declaration. A table is static, a
// function is called on every gated operation and credentials_env reads
// environment variables named after requirement's parameters.
func (c *luaConfig) supplier(decl *lua.LTable, requirement credentials.Requirement) (credentials.Supplier, error) {
	if prefix, ok := decl.RawGetString("credentials_env").(lua.LString); ok {
		return credentials.Env(string(prefix), requirement), nil
	}
	switch v := decl.RawGetString("credentials").(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LTable:
		return credentials.Static(toCredentials(v)), nil
	case *lua.LFunction:
		return &LuaSupplier{mu: &c.stateMu, state: c.state, fn: v}, nil
	default:
		return nil, fmt.Errorf("credentials must be a table or a function, got %s", v.Type())
	}
}

func (c *luaConfig) Inventory() (InventoryConfig, error) {
	inventory := InventoryConfig{
		Interval: DefaultInventoryInterval,
		Listen:   DefaultInventoryListen,
	}
	if c.inventoryDeclaration == nil {
		return inventory, nil
	}
	if err := gluamapper.Map(c.inventoryDeclaration, &inventory); err != nil {
		return inventory, fmt.Errorf("config: inventory: %w", err)
	}
	if inventory.Interval <= 0 {
		return inventory, fmt.Errorf("config: inventory interval must be positive, got %d", inventory.Interval)
	}
	return inventory, nil
}
