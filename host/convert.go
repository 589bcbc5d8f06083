package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/reglet-dev/cligate/domain/entities"
	lua "github.com/yuin/gopher-lua"
)

// maxDepth bounds conversion of nested tables; self-referencing tables
// would otherwise recurse forever.
const maxDepth = 32

// Empty tables made from Go slices carry a metatable with emptyListMarker
// set, so they convert back to an empty slice rather than an empty map.
const (
	emptyListTypeName = "cligate.emptylist"
	emptyListMarker   = "__emptylist"
)

// ToGo converts a Lua value into a plain Go value: nil, bool, float64,
// string, entities.ObjectID, []any or map[string]any. A table whose keys
// are exactly 1..n becomes a slice; any other table, including an empty
// one written in Lua, becomes a map. Empty tables produced by ToLua from a
// slice come back as an empty slice.
func ToGo(lv lua.LValue) (any, error) {
	return toGo(lv, 0)
}

func toGo(lv lua.LValue, depth int) (any, error) {
	if depth > maxDepth {
		return nil, errors.New("value nested too deeply")
	}
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return float64(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		return tableToGo(v, depth)
	case *lua.LUserData:
		switch u := v.Value.(type) {
		case entities.ObjectID:
			return u, nil
		case *Future:
			return nil, errors.New("a pending result cannot be used as a value, await it first")
		case error:
			return u, nil
		}
	}
	return nil, fmt.Errorf("cannot use a %s value here", lv.Type().String())
}

func tableToGo(t *lua.LTable, depth int) (any, error) {
	type pair struct {
		k lua.LValue
		v lua.LValue
	}
	var pairs []pair
	t.ForEach(func(k, v lua.LValue) {
		pairs = append(pairs, pair{k, v})
	})

	if len(pairs) == 0 && isEmptyList(t) {
		return []any{}, nil
	}
	if isSequence(t, len(pairs)) {
		out := make([]any, len(pairs))
		for i := range out {
			v, err := toGo(t.RawGetInt(i+1), depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		var key string
		switch k := p.k.(type) {
		case lua.LString:
			key = string(k)
		case lua.LNumber:
			key = k.String()
		default:
			return nil, fmt.Errorf("cannot use a %s value as a field name", p.k.Type().String())
		}
		v, err := toGo(p.v, depth+1)
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

func isEmptyList(t *lua.LTable) bool {
	mt, ok := t.Metatable.(*lua.LTable)
	return ok && mt.RawGetString(emptyListMarker) == lua.LTrue
}

func isSequence(t *lua.LTable, n int) bool {
	if n == 0 {
		return false
	}
	for i := 1; i <= n; i++ {
		if t.RawGetInt(i) == lua.LNil {
			return false
		}
	}
	return true
}

// ToLua converts a plain Go value into a Lua value. Values that are not
// plain (result structs, typed slices) are normalized through Plain first.
func ToLua(L *lua.LState, v any) lua.LValue {
	return toLua(L, v, 0)
}

func toLua(L *lua.LState, v any, depth int) lua.LValue {
	if depth > maxDepth {
		return lua.LString("[nested too deeply]")
	}
	switch t := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(t)
	case string:
		return lua.LString(t)
	case float64:
		return lua.LNumber(t)
	case float32:
		return lua.LNumber(t)
	case int:
		return lua.LNumber(t)
	case int32:
		return lua.LNumber(t)
	case int64:
		return lua.LNumber(t)
	case entities.ObjectID:
		return newObjectID(L, t)
	case error:
		return lua.LString(t.Error())
	case map[string]any:
		tbl := L.CreateTable(0, len(t))
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			tbl.RawSetString(k, toLua(L, t[k], depth+1))
		}
		return tbl
	case []any:
		tbl := L.CreateTable(len(t), 0)
		if len(t) == 0 {
			mt := L.NewTypeMetatable(emptyListTypeName)
			mt.RawSetString(emptyListMarker, lua.LTrue)
			L.SetMetatable(tbl, mt)
		}
		for i, item := range t {
			tbl.RawSetInt(i+1, toLua(L, item, depth+1))
		}
		return tbl
	default:
		p := Plain(v)
		if isPlain(p) {
			return toLua(L, p, depth+1)
		}
		return lua.LString(fmt.Sprint(v))
	}
}

// Plain normalizes store results into the value shapes ToLua and the
// result renderer understand. Documents and document slices are kept
// as maps (ObjectIDs survive); other structs go through their JSON form.
func Plain(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64, entities.ObjectID, map[string]any, []any:
		return t
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case []entities.Document:
		out := make([]any, len(t))
		for i, d := range t {
			out[i] = d
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return string(data)
	}
	return out
}

func isPlain(v any) bool {
	switch v.(type) {
	case nil, bool, string, float64, entities.ObjectID, map[string]any, []any:
		return true
	}
	return false
}

// integral reports whether f has no fractional part and fits an int64.
func integral(f float64) bool {
	return f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<62
}
