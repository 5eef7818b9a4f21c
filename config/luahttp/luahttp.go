// Package luahttp is the "http" module available to configuration scripts,
// mostly so credential functions can read secrets from an HTTP store.
//
//	local http = require("http")
//	local res = http.request({url = "https://vault.example.com/v1/dns", headers = {["X-Vault-Token"] = token}})
//	return res.json().data
package luahttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"

	"github.com/sapslaj/rrsets/pkg/luautils"
)

type Request struct {
	URL                string
	Method             string
	Body               string
	JSON               any
	Headers            map[string]string
	TimeoutSeconds     int
	InsecureSkipVerify bool
}

type LuaHTTP struct {
	client *http.Client
}

func NewLuaHTTP() *LuaHTTP {
	return &LuaHTTP{client: &http.Client{}}
}

func NewLoader() lua.LGFunction {
	return NewLuaHTTP().Loader
}

func (lhttp *LuaHTTP) Loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"request": lhttp.request,
	})
	L.Push(mod)
	return 1
}

// parseRequest reads the request table. Keys are taken verbatim so header
// names and JSON bodies keep their case.
func parseRequest(tbl *lua.LTable) (Request, error) {
	req := Request{
		URL:                lua.LVAsString(tbl.RawGetString("url")),
		Method:             strings.ToUpper(lua.LVAsString(tbl.RawGetString("method"))),
		Body:               lua.LVAsString(tbl.RawGetString("body")),
		TimeoutSeconds:     int(lua.LVAsNumber(tbl.RawGetString("timeout_seconds"))),
		InsecureSkipVerify: lua.LVAsBool(tbl.RawGetString("insecure_skip_verify")),
	}
	if req.URL == "" {
		return req, fmt.Errorf("url is required")
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if headers, ok := tbl.RawGetString("headers").(*lua.LTable); ok {
		req.Headers = make(map[string]string)
		headers.ForEach(func(k, v lua.LValue) {
			req.Headers[lua.LVAsString(k)] = lua.LVAsString(v)
		})
	}
	if body := tbl.RawGetString("json"); body != lua.LNil {
		req.JSON = luautils.ToGoValue(body)
	}
	return req, nil
}

// jsonToLua turns decoded JSON into nested tables so scripts can iterate and
// return them. Scalars are converted by luar.
func jsonToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case []any:
		tbl := L.NewTable()
		for _, item := range val {
			tbl.Append(jsonToLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.NewTable()
		for key, value := range val {
			tbl.RawSetString(key, jsonToLua(L, value))
		}
		return tbl
	}
	return luar.New(L, v)
}

func (lhttp *LuaHTTP) do(ctx context.Context, req Request) (*http.Response, []byte, error) {
	if req.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	var reqBody io.Reader
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, nil, err
		}
		reqBody = bytes.NewReader(data)
	} else if req.Body != "" {
		reqBody = strings.NewReader(req.Body)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reqBody)
	if err != nil {
		return nil, nil, err
	}
	for k, v := range req.Headers {
		httpRequest.Header.Set(k, v)
	}
	if req.JSON != nil && httpRequest.Header.Get("Content-Type") == "" {
		httpRequest.Header.Set("Content-Type", "application/json")
	}

	client := lhttp.client
	if req.InsecureSkipVerify {
		client = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
	}
	resp, err := client.Do(httpRequest)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}

func (lhttp *LuaHTTP) request(L *lua.LState) int {
	req, err := parseRequest(L.CheckTable(1))
	if err != nil {
		L.RaiseError("error making request: %v", err)
		return 0
	}
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	resp, body, err := lhttp.do(ctx, req)
	if err != nil {
		L.RaiseError("error making request: %v", err)
		return 0
	}

	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	res := L.NewTable()
	res.RawSetString("status_code", luar.New(L, resp.StatusCode))
	res.RawSetString("headers", luar.New(L, headers))
	res.RawSetString("body", luar.New(L, string(body)))
	res.RawSetString("json", luar.New(L, func(LL *luar.LState) int {
		var raw any
		if err := json.Unmarshal(body, &raw); err != nil {
			LL.RaiseError("error parsing response JSON: %v", err)
			return 0
		}
		LL.Push(jsonToLua(LL.LState, raw))
		return 1
	}))
	L.Push(res)
	return 1
}
