package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	lua "github.com/yuin/gopher-lua"

	"llm_proxy/internal/models"
)

// defaultInvokeTimeout bounds a single tool invocation.
const defaultInvokeTimeout = 10 * time.Second

// lookupNames is the function lookup order inside a tool chunk, tried after
// the tool's own name.
var lookupNames = []string{"main", "run", "execute"}

// strippedGlobals are base-library entry points removed from the sandbox.
var strippedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "collectgarbage"}

// strippedOsFields are os-table members removed from the sandbox, leaving
// only clock/date/time/difftime.
var strippedOsFields = []string{"execute", "exit", "getenv", "remove", "rename", "setlocale", "tmpname"}

// LuaTool is a callable tool synthesized from stored Lua source. Each
// invocation runs in a fresh sandboxed interpreter, so a LuaTool is safe
// for concurrent use.
type LuaTool struct {
	name        string
	description string
	source      string
	params      []models.ToolParameter
	schema      *jsonschema.Schema
	timeout     time.Duration
}

// NewLuaTool synthesizes a callable tool from a stored definition. Declared
// parameters win; otherwise they are inferred from the source.
func NewLuaTool(def *models.ToolDefinition) *LuaTool {
	params := []models.ToolParameter(def.Parameters)
	if len(params) == 0 {
		params = InferParameters(def.Source)
	}

	return &LuaTool{
		name:        def.Name,
		description: def.Description,
		source:      def.Source,
		params:      params,
		schema:      BuildInputSchema(params),
		timeout:     defaultInvokeTimeout,
	}
}

func (t *LuaTool) Name() string { return t.name }

func (t *LuaTool) Description() string { return t.description }

func (t *LuaTool) InputSchema() *jsonschema.Schema { return t.schema }

// Source returns the tool's source text, used for cache reconciliation.
func (t *LuaTool) Source() string { return t.source }

// Invoke runs the tool. Failures of any kind come back as formatted result
// strings, never as panics or propagated errors.
func (t *LuaTool) Invoke(args map[string]any) string {
	L := newSandboxedState()
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	L.SetContext(ctx)

	if err := L.DoString(t.source); err != nil {
		return fmt.Sprintf("Error executing tool: %v", err)
	}

	fn := t.findFunction(L)
	if fn == nil {
		return fmt.Sprintf("Error executing tool: no callable function found in %q", t.name)
	}

	// Arguments go in positionally, following the parameter list.
	luaArgs := make([]lua.LValue, 0, len(t.params))
	for _, p := range t.params {
		value, ok := args[p.Name]
		if !ok {
			value = p.Default
		}
		luaArgs = append(luaArgs, goToLua(L, value))
	}

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, luaArgs...); err != nil {
		return fmt.Sprintf("Error executing tool: %v", err)
	}

	ret := L.Get(-1)
	L.Pop(1)

	return stringifyResult(ret)
}

// findFunction locates the entry point: the tool's own name, then the
// conventional names, then the first global function not prefixed with an
// underscore.
func (t *LuaTool) findFunction(L *lua.LState) *lua.LFunction {
	for _, name := range append([]string{t.name}, lookupNames...) {
		if fn, ok := L.GetGlobal(name).(*lua.LFunction); ok {
			return fn
		}
	}

	var candidates []string
	L.G.Global.ForEach(func(key, value lua.LValue) {
		name, ok := key.(lua.LString)
		if !ok {
			return
		}
		if _, isFn := value.(*lua.LFunction); !isFn {
			return
		}
		if len(name) > 0 && name[0] != '_' && !isSandboxGlobal(string(name)) {
			candidates = append(candidates, string(name))
		}
	})
	if len(candidates) == 0 {
		return nil
	}
	sort.Strings(candidates)

	fn, _ := L.GetGlobal(candidates[0]).(*lua.LFunction)
	return fn
}

// newSandboxedState builds an interpreter with only the safe libraries:
// base, table, string, math, a pruned os table and a Go-backed json module.
func newSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.OsLibName, lua.OpenOs},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range strippedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	if osTable, ok := L.GetGlobal("os").(*lua.LTable); ok {
		for _, field := range strippedOsFields {
			osTable.RawSetString(field, lua.LNil)
		}
	}

	L.SetGlobal("json", jsonModule(L))

	return L
}

// sandboxLibGlobals are the global names installed by the sandbox itself,
// skipped when scanning for a tool entry point.
var sandboxLibGlobals = map[string]struct{}{
	"assert": {}, "error": {}, "getmetatable": {}, "ipairs": {}, "next": {},
	"pairs": {}, "pcall": {}, "print": {}, "rawequal": {}, "rawget": {},
	"rawlen": {}, "rawset": {}, "select": {}, "setmetatable": {},
	"tonumber": {}, "tostring": {}, "type": {}, "unpack": {}, "xpcall": {},
	"newproxy": {}, "module": {}, "getfenv": {}, "setfenv": {},
}

func isSandboxGlobal(name string) bool {
	_, ok := sandboxLibGlobals[name]
	return ok
}

// jsonModule exposes encode/decode backed by encoding/json.
func jsonModule(L *lua.LState) *lua.LTable {
	mod := L.NewTable()
	mod.RawSetString("encode", L.NewFunction(func(L *lua.LState) int {
		b, err := json.Marshal(luaToGo(L.Get(1)))
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LString(b))
		return 1
	}))
	mod.RawSetString("decode", L.NewFunction(func(L *lua.LState) int {
		var v any
		if err := json.Unmarshal([]byte(L.CheckString(1)), &v); err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(goToLua(L, v))
		return 1
	}))
	return mod
}

// goToLua converts a Go value into a Lua value.
func goToLua(L *lua.LState, value any) lua.LValue {
	switch v := value.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(v)
	case int:
		return lua.LNumber(v)
	case int64:
		return lua.LNumber(v)
	case float64:
		return lua.LNumber(v)
	case string:
		return lua.LString(v)
	case []any:
		tbl := L.CreateTable(len(v), 0)
		for _, item := range v {
			tbl.Append(goToLua(L, item))
		}
		return tbl
	case map[string]any:
		tbl := L.CreateTable(0, len(v))
		for key, item := range v {
			tbl.RawSetString(key, goToLua(L, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

// luaToGo converts a Lua value into a Go value. Tables with sequential
// numeric keys become slices, everything else becomes a map.
func luaToGo(value lua.LValue) any {
	switch v := value.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		maxN := v.MaxN()
		if maxN > 0 {
			arr := make([]any, 0, maxN)
			for i := 1; i <= maxN; i++ {
				arr = append(arr, luaToGo(v.RawGetInt(i)))
			}
			return arr
		}
		obj := make(map[string]any)
		v.ForEach(func(key, item lua.LValue) {
			obj[key.String()] = luaToGo(item)
		})
		return obj
	default:
		return v.String()
	}
}

// stringifyResult renders a tool return value for the conversation. A nil
// return still reads as success.
func stringifyResult(value lua.LValue) string {
	switch v := value.(type) {
	case *lua.LNilType:
		return "Tool executed successfully."
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if b, err := json.Marshal(luaToGo(v)); err == nil {
			return string(b)
		}
		return v.String()
	default:
		return v.String()
	}
}
