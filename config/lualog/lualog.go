// Package lualog exposes a zap logger to configuration scripts as the "log"
// module.
//
//	local log = require("log")
//	log.info("loaded credentials", {provider = "clouddns"})
package lualog

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sapslaj/rrsets/pkg/luautils"
)

const DefaultCallerKey = "caller"

var levels = map[string]zapcore.Level{
	"debug": zapcore.DebugLevel,
	"info":  zapcore.InfoLevel,
	"warn":  zapcore.WarnLevel,
	"error": zapcore.ErrorLevel,
}

type Module struct {
	logger    *zap.Logger
	callerKey string
}

type Option func(*Module)

// WithCallerKey records the script position under key. zapcore.OmitKey
// disables it.
func WithCallerKey(key string) Option {
	return func(m *Module) {
		m.callerKey = key
	}
}

func WithoutCaller() Option {
	return WithCallerKey(zapcore.OmitKey)
}

func New(logger *zap.Logger, opts ...Option) *Module {
	m := &Module{
		logger:    logger,
		callerKey: DefaultCallerKey,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewLoader returns a loader for L.PreloadModule.
func NewLoader(logger *zap.Logger, opts ...Option) lua.LGFunction {
	return New(logger, opts...).Loader
}

func (m *Module) Loader(L *lua.LState) int {
	exports := map[string]lua.LGFunction{
		"sprint":  m.sprint,
		"sprintf": m.sprintf,
	}
	for name, level := range levels {
		exports[name] = m.logAt(level)
	}
	L.Push(L.SetFuncs(L.NewTable(), exports))
	return 1
}

func (m *Module) args(L *lua.LState, from int) []any {
	values := make([]any, 0, L.GetTop())
	for i := from; i <= L.GetTop(); i++ {
		values = append(values, luautils.ToGoValue(L.Get(i)))
	}
	return values
}

func (m *Module) sprint(L *lua.LState) int {
	L.Push(lua.LString(fmt.Sprint(m.args(L, 1)...)))
	return 1
}

func (m *Module) sprintf(L *lua.LState) int {
	format := L.CheckString(1)
	L.Push(lua.LString(fmt.Sprintf(format, m.args(L, 2)...)))
	return 1
}

// Fields converts a Lua table into zap fields. Non string keys are skipped.
func Fields(tbl *lua.LTable) []zap.Field {
	fields := make([]zap.Field, 0)
	if tbl == nil {
		return fields
	}
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		fields = append(fields, zap.Any(string(key), luautils.ToGoValue(v)))
	})
	return fields
}

func (m *Module) logAt(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		fields := Fields(L.OptTable(2, nil))
		if m.callerKey != zapcore.OmitKey {
			fields = append(fields, zap.String(m.callerKey, strings.TrimSuffix(L.Where(-1), ":")))
		}
		if ce := m.logger.Check(level, msg); ce != nil {
			ce.Write(fields...)
		}
		return 0
	}
}
