package host

import (
	"context"
	"errors"
	"fmt"

	"github.com/reglet-dev/cligate/domain/entities"
	"github.com/reglet-dev/cligate/domain/ports"
	lua "github.com/yuin/gopher-lua"
)

// collectionOp starts one collection operation from already converted
// arguments.
type collectionOp func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error)

var collectionOps = map[string]collectionOp{
	"find": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		q, opts, err := queryAndOptions(args)
		if err != nil {
			return nil, err
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			docs, err := col.Find(ctx, q, opts)
			return Plain(docs), err
		}), nil
	},
	"findOne": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		q, opts, err := queryAndOptions(args)
		if err != nil {
			return nil, err
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			doc, err := col.FindOne(ctx, q, opts)
			if doc == nil {
				return nil, err
			}
			return doc, err
		}), nil
	},
	"findEx": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		q, opts, err := queryAndOptions(args)
		if err != nil {
			return nil, err
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			docs, err := col.FindEx(ctx, q, opts)
			return Plain(docs), err
		}), nil
	},
	"count": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		q, err := queryArg(args, 0)
		if err != nil {
			return nil, err
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			n, err := col.Count(ctx, q)
			return float64(n), err
		}), nil
	},
	"update": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		q, err := queryArg(args, 0)
		if err != nil {
			return nil, err
		}
		u, err := tableArg(args, 1, "update document")
		if err != nil {
			return nil, err
		}
		params, err := updateParams(args, 2)
		if err != nil {
			return nil, err
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			res, err := col.Update(ctx, q, u, params)
			return Plain(res), err
		}), nil
	},
	"insert": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		docs, many, err := insertArg(args)
		if err != nil {
			return nil, err
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			stored, err := col.Insert(ctx, docs...)
			if err != nil {
				return nil, err
			}
			if !many && len(stored) == 1 {
				return stored[0], nil
			}
			return Plain(stored), nil
		}), nil
	},
	"removeWhere": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		q, err := queryArg(args, 0)
		if err != nil {
			return nil, err
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			res, err := col.RemoveWhere(ctx, q)
			return Plain(res), err
		}), nil
	},
	"clear": func(ctx context.Context, col ports.Collection, _ []lua.LValue) (*Future, error) {
		return Go(ctx, func(ctx context.Context) (any, error) {
			return nil, col.Clear(ctx)
		}), nil
	},
	"by": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		id, err := valueArg(args, 0)
		if err != nil {
			return nil, err
		}
		if id == nil {
			return nil, errors.New("bad argument #1: identifier expected")
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			doc, err := col.By(ctx, id)
			if doc == nil {
				return nil, err
			}
			return doc, err
		}), nil
	},
	"ensureIndex": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		field, err := indexField(args)
		if err != nil {
			return nil, err
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			return nil, col.EnsureIndex(ctx, field)
		}), nil
	},
	"bulk": func(ctx context.Context, col ports.Collection, args []lua.LValue) (*Future, error) {
		ops, err := bulkArg(args)
		if err != nil {
			return nil, err
		}
		return Go(ctx, func(ctx context.Context) (any, error) {
			res, err := col.Bulk(ctx, ops)
			return Plain(res), err
		}), nil
	},
}

// bindDatabase installs storage.db with one table per collection.
func (s *session) bindDatabase(db ports.Database) {
	L := s.L
	dbTable := L.NewTable()
	for _, name := range db.Names() {
		col, ok := db.Collection(name)
		if !ok {
			continue
		}
		dbTable.RawSetString(name, s.collectionTable(name, col))
	}
	storage := L.NewTable()
	storage.RawSetString("db", dbTable)
	L.SetGlobal("storage", storage)
}

func (s *session) collectionTable(name string, col ports.Collection) *lua.LTable {
	L := s.L
	tbl := L.NewTable()
	for opName, op := range collectionOps {
		qualified := name + "." + opName
		tbl.RawSetString(opName, L.NewFunction(func(L *lua.LState) int {
			f, err := op(s.ctx, col, callArgs(L, tbl))
			if err != nil {
				L.RaiseError("%s: %s", qualified, err.Error())
			}
			L.Push(newFuture(L, f))
			return 1
		}))
	}
	return tbl
}

// callArgs returns the call's arguments, dropping the receiver when the
// method was called with colon syntax.
func callArgs(L *lua.LState, self lua.LValue) []lua.LValue {
	top := L.GetTop()
	start := 1
	if top >= 1 && L.Get(1) == self {
		start = 2
	}
	args := make([]lua.LValue, 0, top)
	for i := start; i <= top; i++ {
		args = append(args, L.Get(i))
	}
	return args
}

func arg(args []lua.LValue, i int) lua.LValue {
	if i < len(args) {
		return args[i]
	}
	return lua.LNil
}

func valueArg(args []lua.LValue, i int) (any, error) {
	v, err := ToGo(arg(args, i))
	if err != nil {
		return nil, fmt.Errorf("bad argument #%d: %w", i+1, err)
	}
	return v, nil
}

// tableArg converts argument i, which must be a table with named fields.
func tableArg(args []lua.LValue, i int, what string) (map[string]any, error) {
	v, err := valueArg(args, i)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("bad argument #%d: %s expected", i+1, what)
	}
	return m, nil
}

// queryArg converts argument i into a query; nil means match everything.
func queryArg(args []lua.LValue, i int) (entities.Query, error) {
	if arg(args, i) == lua.LNil {
		return entities.Query{}, nil
	}
	return tableArg(args, i, "query table")
}

func queryAndOptions(args []lua.LValue) (entities.Query, *entities.FindOptions, error) {
	q, err := queryArg(args, 0)
	if err != nil {
		return nil, nil, err
	}
	opts, err := findOptions(args, 1)
	if err != nil {
		return nil, nil, err
	}
	return q, opts, nil
}

// findOptions reads {sort = {field = 1 | -1}, offset | skip = n, limit = n}.
func findOptions(args []lua.LValue, i int) (*entities.FindOptions, error) {
	if arg(args, i) == lua.LNil {
		return nil, nil
	}
	m, err := tableArg(args, i, "options table")
	if err != nil {
		return nil, err
	}
	opts := &entities.FindOptions{}
	if s, ok := m["sort"].(map[string]any); ok {
		opts.Sort = entities.SortFromMap(s)
	}
	for _, key := range []string{"offset", "skip"} {
		if n, ok := m[key].(float64); ok && integral(n) && n > 0 {
			opts.Offset = int(n)
		}
	}
	if n, ok := m["limit"].(float64); ok && integral(n) && n > 0 {
		opts.Limit = int(n)
	}
	return opts, nil
}

func updateParams(args []lua.LValue, i int) (*entities.UpdateParams, error) {
	if arg(args, i) == lua.LNil {
		return nil, nil
	}
	m, err := tableArg(args, i, "params table")
	if err != nil {
		return nil, err
	}
	upsert, _ := m["upsert"].(bool)
	return &entities.UpdateParams{Upsert: upsert}, nil
}

// insertArg accepts one document or a list of documents.
func insertArg(args []lua.LValue) ([]entities.Document, bool, error) {
	v, err := valueArg(args, 0)
	if err != nil {
		return nil, false, err
	}
	switch t := v.(type) {
	case map[string]any:
		return []entities.Document{t}, false, nil
	case []any:
		docs := make([]entities.Document, 0, len(t))
		for _, item := range t {
			doc, ok := item.(map[string]any)
			if !ok {
				return nil, false, errors.New("bad argument #1: list of documents expected")
			}
			docs = append(docs, doc)
		}
		return docs, true, nil
	}
	return nil, false, errors.New("bad argument #1: document expected")
}

// indexField accepts "field" or {field = 1}.
func indexField(args []lua.LValue) (string, error) {
	v, err := valueArg(args, 0)
	if err != nil {
		return "", err
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t, nil
		}
	case map[string]any:
		if len(t) == 1 {
			for k := range t {
				return k, nil
			}
		}
	}
	return "", errors.New("bad argument #1: field name expected")
}

// bulkArg reads a list of {op = 'insert'|'update'|'remove', id =, update =, data =}.
func bulkArg(args []lua.LValue) ([]entities.BulkOp, error) {
	v, err := valueArg(args, 0)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		if m, isMap := v.(map[string]any); isMap && len(m) == 0 {
			return nil, nil
		}
		return nil, errors.New("bad argument #1: list of operations expected")
	}
	ops := make([]entities.BulkOp, 0, len(list))
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("bulk operation #%d: table expected", i+1)
		}
		op := entities.BulkOp{ID: m["id"]}
		op.Op, _ = m["op"].(string)
		op.Update, _ = m["update"].(map[string]any)
		op.Data, _ = m["data"].(map[string]any)
		ops = append(ops, op)
	}
	return ops, nil
}
