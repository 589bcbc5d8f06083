// Package inspect renders command results as bounded, human readable text.
package inspect

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/reglet-dev/cligate/domain/entities"
)

const (
	// DefaultDepth is how many container levels are expanded.
	DefaultDepth = 3
	// DefaultMaxItems is how many entries of one container are shown.
	DefaultMaxItems = 50

	breakLength = 72
)

type config struct {
	depth    int
	maxItems int
}

// Option configures Format.
type Option func(*config)

// WithDepth sets how many container levels are expanded.
func WithDepth(d int) Option {
	return func(c *config) {
		c.depth = d
	}
}

// WithMaxItems sets how many entries of one container are shown.
func WithMaxItems(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxItems = n
		}
	}
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Format renders v. Containers nested deeper than the depth limit collapse
// to [Object] or [Array]; containers longer than the item limit end with a
// "... N more items" marker.
func Format(v any, opts ...Option) string {
	cfg := config{depth: DefaultDepth, maxItems: DefaultMaxItems}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg.format(v, 0, 0)
}

func (c *config) format(v any, level, indent int) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case entities.ObjectID:
		return "ObjectId('" + t.Hex() + "')"
	case error:
		return "[Error: " + t.Error() + "]"
	case fmt.Stringer:
		return t.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if level > c.depth {
			return "[Object]"
		}
		return c.formatMap(rv, level, indent)
	case reflect.Slice, reflect.Array:
		if level > c.depth {
			return "[Array]"
		}
		return c.formatList(rv, level, indent)
	case reflect.Pointer:
		if rv.IsNil() {
			return "null"
		}
		return c.format(rv.Elem().Interface(), level, indent)
	}
	return fmt.Sprintf("%v", v)
}

func (c *config) formatMap(rv reflect.Value, level, indent int) string {
	if rv.Len() == 0 {
		return "{}"
	}
	keys := make([]string, 0, rv.Len())
	for _, k := range rv.MapKeys() {
		keys = append(keys, k.String())
	}
	sort.Strings(keys)

	entries := make([]string, 0, len(keys))
	for i, k := range keys {
		if i == c.maxItems {
			entries = append(entries, more(len(keys)-i))
			break
		}
		val := rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface()
		name := k
		if !identifier.MatchString(k) {
			name = quote(k)
		}
		entries = append(entries, name+": "+c.format(val, level+1, indent+2))
	}
	return wrap("{", "}", entries, indent)
}

func (c *config) formatList(rv reflect.Value, level, indent int) string {
	if rv.Len() == 0 {
		return "[]"
	}
	entries := make([]string, 0, min(rv.Len(), c.maxItems+1))
	for i := 0; i < rv.Len(); i++ {
		if i == c.maxItems {
			entries = append(entries, more(rv.Len()-i))
			break
		}
		entries = append(entries, c.format(rv.Index(i).Interface(), level+1, indent+2))
	}
	return wrap("[", "]", entries, indent)
}

func more(n int) string {
	if n == 1 {
		return "... 1 more item"
	}
	return fmt.Sprintf("... %d more items", n)
}

// wrap joins entries on one line when they fit, otherwise one per line.
func wrap(open, close string, entries []string, indent int) string {
	single := open + " " + strings.Join(entries, ", ") + " " + close
	if indent+len(single) <= breakLength && !strings.Contains(single, "\n") {
		return single
	}
	pad := strings.Repeat(" ", indent+2)
	return open + "\n" + pad + strings.Join(entries, ",\n"+pad) + "\n" + strings.Repeat(" ", indent) + close
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return "'" + s + "'"
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) && f < 1e21 && f > -1e21 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
