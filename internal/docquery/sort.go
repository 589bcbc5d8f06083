package docquery

import (
	"sort"

	"github.com/reglet-dev/cligate/domain/entities"
)

// Sort orders docs in place by keys. Missing fields sort first.
func Sort(docs []entities.Document, keys []entities.SortKey) {
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, k := range keys {
			a, _ := Lookup(docs[i], k.Field)
			b, _ := Lookup(docs[j], k.Field)
			c := Compare(a, b)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// Page applies offset and limit. A non-positive limit means no limit.
func Page(docs []entities.Document, offset, limit int) []entities.Document {
	if offset > 0 {
		if offset >= len(docs) {
			return docs[:0]
		}
		docs = docs[offset:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

// Select filters, sorts and pages docs in one pass.
func Select(docs []entities.Document, query entities.Query, opts *entities.FindOptions) ([]entities.Document, error) {
	out, err := Filter(docs, query)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		return out, nil
	}
	Sort(out, opts.Sort)
	return Page(out, opts.Offset, opts.Limit), nil
}
