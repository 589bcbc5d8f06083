package docquery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reglet-dev/cligate/domain/entities"
)

// Apply returns a copy of doc with update applied and whether anything
// changed. doc itself is never modified.
func Apply(doc entities.Document, update entities.UpdateDoc) (entities.Document, bool, error) {
	out := entities.CloneDocument(doc)
	if out == nil {
		out = entities.Document{}
	}

	if !HasOperator(update) {
		update = entities.UpdateDoc{"$set": update}
	} else if !IsOperatorDoc(update) {
		return nil, false, fmt.Errorf("update mixes operators and fields")
	}

	// Apply operators in a fixed order so results do not depend on map
	// iteration.
	ops := make([]string, 0, len(update))
	for op := range update {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	for _, op := range ops {
		arg, ok := update[op].(map[string]any)
		if !ok {
			return nil, false, fmt.Errorf("%s requires a document", op)
		}
		for _, path := range sortedKeys(arg) {
			if path == entities.FieldID || strings.HasPrefix(path, entities.FieldID+".") {
				if op == "$set" || op == "$merge" {
					if cur, ok := Lookup(out, path); ok && Equal(cur, arg[path]) {
						continue
					}
				}
				return nil, false, fmt.Errorf("cannot modify %s", entities.FieldID)
			}
			if op == "$rename" {
				if to, ok := arg[path].(string); ok && (to == entities.FieldID || strings.HasPrefix(to, entities.FieldID+".")) {
					return nil, false, fmt.Errorf("cannot modify %s", entities.FieldID)
				}
			}
			if err := applyOne(out, op, path, arg[path]); err != nil {
				return nil, false, err
			}
		}
	}
	return out, !Equal(map[string]any(doc), map[string]any(out)), nil
}

func applyOne(doc entities.Document, op, path string, value any) error {
	switch op {
	case "$set":
		return setPath(doc, path, entities.CloneValue(value))
	case "$unset":
		unsetPath(doc, path)
		return nil
	case "$inc":
		delta, ok := toFloat(value)
		if !ok {
			return fmt.Errorf("$inc on %s requires a number", path)
		}
		cur, present := Lookup(doc, path)
		if !present || cur == nil {
			return setPath(doc, path, value)
		}
		base, ok := toFloat(cur)
		if !ok {
			return fmt.Errorf("$inc on non-numeric field %s", path)
		}
		return setPath(doc, path, base+delta)
	case "$merge":
		cur, _ := Lookup(doc, path)
		return setPath(doc, path, merge(cur, value))
	case "$push":
		cur, present := Lookup(doc, path)
		var list []any
		if present && cur != nil {
			l, ok := asList(cur)
			if !ok {
				return fmt.Errorf("$push on non-array field %s", path)
			}
			list = append(list, l...)
		}
		return setPath(doc, path, append(list, entities.CloneValue(value)))
	case "$pull":
		cur, present := Lookup(doc, path)
		if !present {
			return nil
		}
		l, ok := asList(cur)
		if !ok {
			return fmt.Errorf("$pull on non-array field %s", path)
		}
		kept := make([]any, 0, len(l))
		for _, item := range l {
			if !pullMatches(item, value) {
				kept = append(kept, item)
			}
		}
		return setPath(doc, path, kept)
	case "$addToSet":
		cur, present := Lookup(doc, path)
		var list []any
		if present && cur != nil {
			l, ok := asList(cur)
			if !ok {
				return fmt.Errorf("$addToSet on non-array field %s", path)
			}
			list = append(list, l...)
		}
		for _, item := range list {
			if Equal(item, value) {
				return setPath(doc, path, list)
			}
		}
		return setPath(doc, path, append(list, entities.CloneValue(value)))
	case "$rename":
		to, ok := value.(string)
		if !ok || to == "" {
			return fmt.Errorf("$rename of %s requires a field name", path)
		}
		if to == path || strings.HasPrefix(to, path+".") || strings.HasPrefix(path, to+".") {
			return fmt.Errorf("$rename of %s onto %s overlaps", path, to)
		}
		cur, present := Lookup(doc, path)
		if !present {
			return nil
		}
		unsetPath(doc, path)
		return setPath(doc, to, cur)
	}
	return fmt.Errorf("unsupported update operator %s", op)
}

func pullMatches(item, cond any) bool {
	if q, ok := cond.(map[string]any); ok {
		if IsOperatorDoc(q) {
			ok, err := matchOperators(item, true, q)
			return err == nil && ok
		}
		if m, ok := item.(map[string]any); ok {
			ok, err := Match(m, q)
			return err == nil && ok
		}
	}
	return Equal(item, cond)
}

// merge deep-merges src into dst, returning the merged value.
func merge(dst, src any) any {
	srcMap, ok := src.(map[string]any)
	if !ok {
		return entities.CloneValue(src)
	}
	dstMap, ok := dst.(map[string]any)
	if !ok {
		return entities.CloneValue(srcMap)
	}
	out := entities.CloneValue(dstMap).(map[string]any)
	for k, v := range srcMap {
		out[k] = merge(out[k], v)
	}
	return out
}

func setPath(doc map[string]any, path string, value any) error {
	segs := strings.Split(path, ".")
	cur := doc
	for i, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg]
		if !ok || next == nil {
			m := map[string]any{}
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("cannot set %s: %s is not a document", path, strings.Join(segs[:i+1], "."))
		}
		cur = m
	}
	cur[segs[len(segs)-1]] = value
	return nil
}

func unsetPath(doc map[string]any, path string) {
	segs := strings.Split(path, ".")
	cur := doc
	for _, seg := range segs[:len(segs)-1] {
		m, ok := cur[seg].(map[string]any)
		if !ok {
			return
		}
		cur = m
	}
	delete(cur, segs[len(segs)-1])
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SeedFromQuery returns the document an upsert starts from: the top-level
// equality fields of query.
func SeedFromQuery(query entities.Query) entities.Document {
	seed := entities.Document{}
	for k, v := range query {
		if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			continue
		}
		if m, ok := v.(map[string]any); ok && IsOperatorDoc(m) {
			if eq, ok := m["$eq"]; ok {
				seed[k] = entities.CloneValue(eq)
			}
			continue
		}
		seed[k] = entities.CloneValue(v)
	}
	return seed
}
