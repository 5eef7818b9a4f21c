package config

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/sapslaj/rrsets/credentials"
	"github.com/sapslaj/rrsets/pkg/luautils"
)

// LuaSupplier calls a configuration function for credentials every time they
// are needed. The function may return nil, a list of values or a table of
// named values. Calls share the configuration's Lua state and are
// serialized.
type LuaSupplier struct {
	mu    *sync.Mutex
	state *lua.LState
	fn    *lua.LFunction
}

var _ credentials.Supplier = (*LuaSupplier)(nil)

func (s *LuaSupplier) Get(ctx context.Context) (credentials.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsClosed() {
		return nil, fmt.Errorf("credentials function called after configuration was closed")
	}
	s.state.SetContext(ctx)
	defer s.state.RemoveContext()
	if err := s.state.CallByParam(lua.P{Fn: s.fn, NRet: 1, Protect: true}); err != nil {
		return nil, fmt.Errorf("credentials function failed: %w", err)
	}
	ret := s.state.Get(-1)
	s.state.Pop(1)
	switch v := ret.(type) {
	case *lua.LNilType:
		return nil, nil
	case *lua.LTable:
		return toCredentials(v), nil
	}
	return nil, fmt.Errorf("credentials function returned %s, want table or nil", ret.Type())
}

// toCredentials reads the array part as list credentials and otherwise the
// hash part as named credentials. An empty table means no credentials.
func toCredentials(tbl *lua.LTable) credentials.Credentials {
	if luautils.IsArray(tbl) {
		return credentials.ListCredentials(luautils.StringList(tbl))
	}
	values := luautils.StringMap(tbl)
	if len(values) == 0 {
		return nil
	}
	return credentials.MapCredentials(values)
}
