package docquery

import (
	"fmt"
	"regexp"

	"github.com/reglet-dev/cligate/domain/entities"
)

// Match reports whether doc satisfies query. An empty query matches every
// document. Unsupported operators are an error rather than a silent miss.
func Match(doc entities.Document, query entities.Query) (bool, error) {
	for key, cond := range query {
		var ok bool
		var err error
		switch key {
		case "$and":
			ok, err = matchAll(doc, cond, key)
		case "$or":
			ok, err = matchAny(doc, cond, key)
		case "$nor":
			ok, err = matchAny(doc, cond, key)
			ok = !ok
		default:
			if len(key) > 0 && key[0] == '$' {
				return false, fmt.Errorf("unsupported query operator %s", key)
			}
			ok, err = matchField(doc, key, cond)
		}
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func subQueries(cond any, op string) ([]entities.Query, error) {
	list, ok := asList(cond)
	if !ok {
		return nil, fmt.Errorf("%s requires an array", op)
	}
	out := make([]entities.Query, 0, len(list))
	for _, item := range list {
		q, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s requires an array of queries", op)
		}
		out = append(out, q)
	}
	return out, nil
}

func matchAll(doc entities.Document, cond any, op string) (bool, error) {
	qs, err := subQueries(cond, op)
	if err != nil {
		return false, err
	}
	for _, q := range qs {
		ok, err := Match(doc, q)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchAny(doc entities.Document, cond any, op string) (bool, error) {
	qs, err := subQueries(cond, op)
	if err != nil {
		return false, err
	}
	for _, q := range qs {
		ok, err := Match(doc, q)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchField(doc entities.Document, path string, cond any) (bool, error) {
	value, present := Lookup(doc, path)
	if ops, ok := cond.(map[string]any); ok && IsOperatorDoc(ops) {
		return matchOperators(value, present, ops)
	}
	return equalsCondition(value, present, cond), nil
}

// equalsCondition implements implicit equality, including membership of a
// scalar in an array field and null matching a missing field.
func equalsCondition(value any, present bool, cond any) bool {
	if !present {
		return cond == nil
	}
	if Equal(value, cond) {
		return true
	}
	if list, ok := asList(value); ok {
		for _, item := range list {
			if Equal(item, cond) {
				return true
			}
		}
	}
	return false
}

func matchOperators(value any, present bool, ops map[string]any) (bool, error) {
	for op, arg := range ops {
		ok, err := matchOperator(value, present, op, arg, ops)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOperator(value any, present bool, op string, arg any, ops map[string]any) (bool, error) {
	switch op {
	case "$eq":
		return equalsCondition(value, present, arg), nil
	case "$ne":
		return !equalsCondition(value, present, arg), nil
	case "$in", "$nin":
		list, ok := asList(arg)
		if !ok {
			return false, fmt.Errorf("%s requires an array", op)
		}
		found := false
		for _, candidate := range list {
			if equalsCondition(value, present, candidate) {
				found = true
				break
			}
		}
		if op == "$in" {
			return found, nil
		}
		return !found, nil
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false, nil
		}
		if list, ok := asList(value); ok {
			for _, item := range list {
				if ordered(item, op, arg) {
					return true, nil
				}
			}
			return false, nil
		}
		return ordered(value, op, arg), nil
	case "$exists":
		want, _ := arg.(bool)
		if f, ok := toFloat(arg); ok {
			want = f != 0
		}
		return present == want, nil
	case "$regex":
		return matchRegex(value, present, arg, ops)
	case "$options":
		// consumed by $regex
		return true, nil
	case "$not":
		inner, ok := arg.(map[string]any)
		if !ok || !IsOperatorDoc(inner) {
			return false, fmt.Errorf("$not requires an operator document")
		}
		ok, err := matchOperators(value, present, inner)
		return !ok, err
	}
	return false, fmt.Errorf("unsupported query operator %s", op)
}

func ordered(value any, op string, arg any) bool {
	if !orderable(value, arg) {
		return false
	}
	c := Compare(value, arg)
	switch op {
	case "$gt":
		return c > 0
	case "$gte":
		return c >= 0
	case "$lt":
		return c < 0
	default:
		return c <= 0
	}
}

func matchRegex(value any, present bool, arg any, ops map[string]any) (bool, error) {
	pattern, ok := arg.(string)
	if !ok {
		return false, fmt.Errorf("$regex requires a string pattern")
	}
	if opts, ok := ops["$options"].(string); ok && opts != "" {
		pattern = "(?" + opts + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("$regex: %w", err)
	}
	if !present {
		return false, nil
	}
	if s, ok := value.(string); ok {
		return re.MatchString(s), nil
	}
	if list, ok := asList(value); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && re.MatchString(s) {
				return true, nil
			}
		}
	}
	return false, nil
}

// Filter returns the documents matching query, preserving order.
func Filter(docs []entities.Document, query entities.Query) ([]entities.Document, error) {
	out := make([]entities.Document, 0, len(docs))
	for _, d := range docs {
		ok, err := Match(d, query)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}
