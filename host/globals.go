package host

import (
	"context"
	"fmt"
	"strings"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/hostfuncs"
	"github.com/reglet-dev/cligate/internal/inspect"
	lua "github.com/yuin/gopher-lua"
)

// unsafeBaseFuncs are base library functions that reach the filesystem
// or the module loader.
var unsafeBaseFuncs = []string{"dofile", "loadfile", "require", "module"}

func openLibs(L *lua.LState) {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range unsafeBaseFuncs {
		L.SetGlobal(name, lua.LNil)
	}
}

func (s *session) bindBuiltins() {
	L := s.L
	L.SetGlobal("print", L.NewFunction(s.print))
	L.SetGlobal("await", L.NewFunction(s.await))
	L.SetGlobal("ObjectId", L.NewFunction(objectIDCtor))
}

// print emits one log line: arguments joined by spaces, non-strings
// rendered the same way results are.
func (s *session) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, 0, top)
	for i := 1; i <= top; i++ {
		parts = append(parts, s.render(L, L.Get(i)))
	}
	if s.env.Print != nil {
		s.env.Print(strings.Join(parts, " "))
	}
	return 0
}

func (s *session) render(L *lua.LState, lv lua.LValue) string {
	if str, ok := lv.(lua.LString); ok {
		return string(str)
	}
	if _, ok := futureOf(lv); ok {
		return L.ToStringMeta(lv).String()
	}
	v, err := ToGo(lv)
	if err != nil {
		return L.ToStringMeta(lv).String()
	}
	return inspect.Format(v)
}

// await blocks until its argument, if it is a Future, settles. Other
// values are returned unchanged. The wait is bounded by the execution's
// synchronous timeout.
func (s *session) await(L *lua.LState) int {
	lv := L.Get(1)
	f, ok := futureOf(lv)
	if !ok {
		L.Push(lv)
		return 1
	}
	v, err := f.Wait(L.Context())
	if err != nil {
		raise(L, err)
	}
	L.Push(ToLua(L, v))
	return 1
}

// objectIDCtor implements ObjectId() and ObjectId(hex).
func objectIDCtor(L *lua.LState) int {
	if L.GetTop() == 0 {
		L.Push(newObjectID(L, entities.NewObjectID()))
		return 1
	}
	id, err := entities.ParseObjectID(L.CheckString(1))
	if err != nil {
		L.ArgError(1, err.Error())
	}
	L.Push(newObjectID(L, id))
	return 1
}

// bindCapabilities installs one global table per registry module.
func (s *session) bindCapabilities(reg *hostfuncs.HandlerRegistry) {
	L := s.L
	for _, module := range reg.Modules() {
		tbl := L.NewTable()
		for _, fn := range reg.Functions(module) {
			name := module + "." + fn
			tbl.RawSetString(fn, L.NewFunction(func(L *lua.LState) int {
				f, err := s.invoke(reg, name, callArgs(L, tbl))
				if err != nil {
					L.RaiseError("%s: %s", name, err.Error())
				}
				L.Push(newFuture(L, f))
				return 1
			}))
		}
		L.SetGlobal(module, tbl)
	}
	L.SetGlobal("help", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(s.helpText()))
		return 1
	}))
}

func (s *session) invoke(reg *hostfuncs.HandlerRegistry, name string, largs []lua.LValue) (*Future, error) {
	args := make([]any, 0, len(largs))
	for i, lv := range largs {
		v, err := ToGo(lv)
		if err != nil {
			return nil, fmt.Errorf("bad argument #%d: %w", i+1, err)
		}
		args = append(args, v)
	}
	payload, err := hostfuncs.EncodeArgs(args, reg.MaxRequestSize())
	if err != nil {
		return nil, err
	}
	ctx := hostfuncs.WithCaller(s.ctx, s.env.UserID)
	return Go(ctx, func(ctx context.Context) (any, error) {
		resp, err := reg.Invoke(ctx, name, payload)
		if err != nil {
			return nil, err
		}
		return hostfuncs.DecodeResult(name, resp)
	}), nil
}

func (s *session) helpText() string {
	var b strings.Builder
	b.WriteString("Commands are Lua. Storage calls and capabilities return futures; await(f) waits for one.\n")
	if s.env.Database != nil {
		b.WriteString("storage.db collections: ")
		b.WriteString(strings.Join(s.env.Database.Names(), ", "))
		b.WriteString("\n  methods: find, findOne, findEx, count, update, insert, removeWhere, clear, by, ensureIndex, bulk\n")
	}
	if s.env.Capabilities != nil {
		for _, module := range s.env.Capabilities.Modules() {
			fmt.Fprintf(&b, "%s: %s\n", module, strings.Join(s.env.Capabilities.Functions(module), ", "))
		}
	}
	b.WriteString("ObjectId(hex), print(...), await(f)")
	return b.String()
}
