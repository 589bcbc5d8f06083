package gateway

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/reglet-dev/cligate/domain/entities"
)

// Controller levels accepted by SetControllerLevel.
const (
	MinControllerLevel = 0
	MaxControllerLevel = 8
)

// HugeStore is the payload SetStoreHuge writes.
var HugeStore = map[string]any{
	"energy": 5000000,
	"power":  100000,
	"ops":    100000,
	"XUHO2":  100000,
	"XUH2O":  100000,
	"XKH2O":  100000,
	"XKHO2":  100000,
	"XLH2O":  100000,
	"XLHO2":  100000,
	"XZH2O":  100000,
	"XZHO2":  100000,
	"XGH2O":  100000,
	"XGHO2":  100000,
	"X":      100000,
	"O":      100000,
	"H":      100000,
	"Z":      100000,
	"L":      100000,
	"K":      100000,
	"U":      100000,
}

var helpLines = []string{
	"exec(code): execute a command. Output will appear in your console.",
	"setStore(target, store): update rooms.objects store by id, _id or object.",
	"setStoreHuge(target): set a large predefined store payload.",
	"setControllerLevel(target, level): update controller level by rooms.objects _id or object.",
	"finishConstructionSites(rooms): set construction sites progress to progressTotal-1 for given rooms.",
}

// Help describes the helpers.
func Help() string {
	return strings.Join(helpLines, "\n")
}

// Help returns Help() for callers holding a Gateway.
func (g *Gateway) Help() string {
	return Help()
}

// SetStore submits a command replacing the store of the room object target.
func (g *Gateway) SetStore(userID string, target any, store map[string]any) string {
	return g.Submit(userID, SetStoreCommand(target, store))
}

// SetStoreHuge submits SetStore with HugeStore.
func (g *Gateway) SetStoreHuge(userID string, target any) string {
	return g.SetStore(userID, target, HugeStore)
}

// SetControllerLevel submits a command setting the level of the controller
// target. level is clamped to the controller level range.
func (g *Gateway) SetControllerLevel(userID string, target any, level any) string {
	return g.Submit(userID, SetControllerLevelCommand(target, level))
}

// FinishConstructionSites submits a command bringing every construction
// site in rooms to one step short of completion.
func (g *Gateway) FinishConstructionSites(userID string, rooms ...string) string {
	return g.Submit(userID, FinishConstructionSitesCommand(rooms))
}

// SetStoreCommand builds the command SetStore submits.
func SetStoreCommand(target any, store map[string]any) string {
	if store == nil {
		store = map[string]any{}
	}
	return fmt.Sprintf("storage.db['%s'].update({_id = %s}, {['$set'] = {store = %s}})",
		entities.CollectionRoomObjects, luaLiteral(TargetID(target)), luaLiteral(store))
}

// SetControllerLevelCommand builds the command SetControllerLevel submits.
func SetControllerLevelCommand(target any, level any) string {
	return fmt.Sprintf("storage.db['%s'].update({_id = %s}, {['$set'] = {level = %d}})",
		entities.CollectionRoomObjects, luaLiteral(TargetID(target)), ClampLevel(level))
}

// FinishConstructionSitesCommand builds the command FinishConstructionSites
// submits. A site without a numeric progressTotal gets progress -1.
func FinishConstructionSitesCommand(rooms []string) string {
	if len(rooms) == 0 {
		return "'OK'"
	}
	objects := fmt.Sprintf("storage.db['%s']", entities.CollectionRoomObjects)
	var b strings.Builder
	fmt.Fprintf(&b, "local sites = await(%s.find({type = %s, room = {['$in'] = %s}}))\n",
		objects, luaLiteral(entities.TypeConstructionSite), luaLiteral(rooms))
	b.WriteString("for _, cs in ipairs(sites) do\n")
	b.WriteString("  local total = cs.progressTotal\n")
	b.WriteString("  if type(total) ~= 'number' then total = 0 end\n")
	fmt.Fprintf(&b, "  await(%s.update({_id = cs._id}, {['$set'] = {progress = total - 1}}))\n", objects)
	b.WriteString("end\n")
	b.WriteString("return 'OK'")
	return b.String()
}

// TargetID reduces a target to a document identifier: strings are used as
// is, documents contribute their _id or id field. A missing target becomes
// the empty identifier, which matches nothing.
func TargetID(target any) any {
	switch t := target.(type) {
	case nil:
		return ""
	case string:
		return t
	case entities.ObjectID:
		return t.Hex()
	case map[string]any:
		return documentID(t)
	}
	return fmt.Sprint(target)
}

func documentID(doc map[string]any) any {
	for _, key := range []string{entities.FieldID, "id"} {
		if v, ok := doc[key]; ok && v != nil {
			return TargetID(v)
		}
	}
	return fmt.Sprint(doc)
}

// ClampLevel parses level as an integer and clamps it to the controller
// level range. Unparseable levels become the minimum.
func ClampLevel(level any) int {
	var n int
	switch v := level.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		if !math.IsNaN(v) {
			n = int(v)
		}
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			n = parsed
		}
	}
	return min(max(n, MinControllerLevel), MaxControllerLevel)
}

// luaLiteral renders v as Lua source.
func luaLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "nil"
	case bool:
		return strconv.FormatBool(t)
	case string:
		return luaString(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []string:
		parts := make([]string, len(t))
		for i, s := range t {
			parts[i] = luaString(s)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = luaLiteral(e)
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = "[" + luaString(k) + "] = " + luaLiteral(t[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return luaString(fmt.Sprint(v))
}

// luaString quotes s for Lua, which has no \x or \u escapes.
func luaString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c < 0x20 || c == 0x7f {
				fmt.Fprintf(&b, "\\%03d", c)
				continue
			}
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
