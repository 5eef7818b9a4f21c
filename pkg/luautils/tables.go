// Package luautils converts GopherLua values into Go values without the key
// renaming gluamapper applies when mapping onto structs.
package luautils

import (
	"fmt"
	"math"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
)

// ToGoValue converts lv to a Go value. Tables become map[string]any or []any
// so the result can be handed to encoding/json and zap, and integral numbers
// become int64 so they format without a decimal point.
func ToGoValue(lv lua.LValue) any {
	return normalize(gluamapper.ToGoValue(lv, gluamapper.Option{
		NameFunc: gluamapper.Id,
	}))
}

func normalize(value any) any {
	switch v := value.(type) {
	case float64:
		if math.Round(v) == v && !math.IsInf(v, 0) {
			return int64(v)
		}
	case map[any]any:
		result := make(map[string]any, len(v))
		for key, item := range v {
			result[fmt.Sprint(key)] = normalize(item)
		}
		return result
	case []any:
		for i, item := range v {
			v[i] = normalize(item)
		}
	}
	return value
}

// IsArray reports whether tbl has an array part.
func IsArray(tbl *lua.LTable) bool {
	return tbl.MaxN() > 0
}

// StringList returns the array part of tbl, converting each element with
// Lua's tostring rules.
func StringList(tbl *lua.LTable) []string {
	n := tbl.MaxN()
	result := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		result = append(result, lua.LVAsString(tbl.RawGetInt(i)))
	}
	return result
}

// StringMap returns the string keyed entries of tbl with keys untouched.
func StringMap(tbl *lua.LTable) map[string]string {
	result := make(map[string]string)
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		result[string(key)] = lua.LVAsString(v)
	})
	return result
}
