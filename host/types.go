package host

import (
	"fmt"

	"github.com/reglet-dev/cligate/domain/entities"
	lua "github.com/yuin/gopher-lua"
)

const (
	objectIDTypeName = "ObjectId"
	futureTypeName   = "Future"
	errorTypeName    = "Error"
)

func registerTypes(L *lua.LState) {
	oid := L.NewTypeMetatable(objectIDTypeName)
	L.SetField(oid, "__tostring", L.NewFunction(func(L *lua.LState) int {
		id := checkObjectID(L, 1)
		L.Push(lua.LString(fmt.Sprintf("ObjectId('%s')", id.Hex())))
		return 1
	}))
	L.SetField(oid, "__eq", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(checkObjectID(L, 1) == checkObjectID(L, 2)))
		return 1
	}))
	L.SetField(oid, "__index", L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"hex": func(L *lua.LState) int {
			L.Push(lua.LString(checkObjectID(L, 1).Hex()))
			return 1
		},
	}))

	fut := L.NewTypeMetatable(futureTypeName)
	L.SetField(fut, "__tostring", L.NewFunction(func(L *lua.LState) int {
		f, _ := futureOf(L.Get(1))
		state := "pending"
		if f != nil {
			select {
			case <-f.Done():
				state = "settled"
			default:
			}
		}
		L.Push(lua.LString("Future <" + state + ">"))
		return 1
	}))

	errMeta := L.NewTypeMetatable(errorTypeName)
	L.SetField(errMeta, "__tostring", L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		if err, ok := ud.Value.(error); ok {
			L.Push(lua.LString(err.Error()))
		} else {
			L.Push(lua.LString("error"))
		}
		return 1
	}))
}

func newObjectID(L *lua.LState, id entities.ObjectID) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = id
	L.SetMetatable(ud, L.GetTypeMetatable(objectIDTypeName))
	return ud
}

func checkObjectID(L *lua.LState, n int) entities.ObjectID {
	ud := L.CheckUserData(n)
	id, ok := ud.Value.(entities.ObjectID)
	if !ok {
		L.ArgError(n, "ObjectId expected")
	}
	return id
}

func newFuture(L *lua.LState, f *Future) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = f
	L.SetMetatable(ud, L.GetTypeMetatable(futureTypeName))
	return ud
}

func futureOf(lv lua.LValue) (*Future, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	f, ok := ud.Value.(*Future)
	return f, ok
}

// raise aborts the running Lua function with err as the error object, so
// that Run can recover the typed Go error and Lua code can still pcall it.
func raise(L *lua.LState, err error) {
	ud := L.NewUserData()
	ud.Value = err
	L.SetMetatable(ud, L.GetTypeMetatable(errorTypeName))
	L.Error(ud, 1)
}
