package stage

import (
	lua "github.com/yuin/gopher-lua"
)

// toLValue converts a Go value to a Lua value.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case bool:
		if x {
			return lua.LTrue
		}
		return lua.LFalse
	case int:
		return lua.LNumber(float64(x))
	case int64:
		return lua.LNumber(float64(x))
	case uint64:
		return lua.LNumber(float64(x))
	case float64:
		return lua.LNumber(x)
	case map[string]any:
		tbl := L.NewTable()
		for k, v2 := range x {
			tbl.RawSetString(k, toLValue(L, v2))
		}
		return tbl
	case []any:
		tbl := L.NewTable()
		for i, v2 := range x {
			tbl.RawSetInt(i+1, toLValue(L, v2))
		}
		return tbl
	default:
		return lua.LNil
	}
}

// fromLValue converts a Lua value back to a plain Go value. Tables with
// a pure 1..n integer shape become slices, other tables become maps.
func fromLValue(v lua.LValue) any {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LTable:
		return fromLTable(x)
	default:
		return nil
	}
}

func fromLTable(tbl *lua.LTable) any {
	n := tbl.Len()
	if n > 0 {
		arrayLike := true
		count := 0
		tbl.ForEach(func(k, _ lua.LValue) {
			count++
			kn, ok := k.(lua.LNumber)
			if !ok || float64(kn) != float64(int(kn)) || int(kn) < 1 || int(kn) > n {
				arrayLike = false
			}
		})
		if arrayLike && count == n {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, fromLValue(tbl.RawGetInt(i)))
			}
			return out
		}
	}
	out := map[string]any{}
	tbl.ForEach(func(k, v lua.LValue) {
		out[k.String()] = fromLValue(v)
	})
	return out
}
