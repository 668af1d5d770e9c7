package memory

import (
	"sort"

	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/path"
	"github.com/brain2labs/docstore/store"
	"github.com/brain2labs/docstore/value"
)

// project builds the sparse document spec.md §4.2 describes for a SELECT
// projection: only the requested paths are copied into the result.
func project(doc value.Value, sel *lang.Select) (value.Value, error) {
	if sel.Star {
		return doc, nil
	}
	out := value.Null()
	for _, term := range sel.Terms {
		v, err := path.Get(doc, term.Path)
		if err != nil {
			continue // an undefined projected path is simply absent from the result
		}
		out, err = path.Set(out, term.Path, v)
		if err != nil {
			return value.Value{}, err
		}
	}
	return out, nil
}

// sortItems orders items by the first ORDER BY term, breaking ties with
// subsequent terms; a document where the path is undefined sorts to the
// end (spec.md §4.2).
func sortItems(items []store.Item, ob *lang.OrderBy) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, term := range ob.Terms {
			vi, erri := path.Get(items[i].Value, term.Path)
			vj, errj := path.Get(items[j].Value, term.Path)
			iDefined := erri == nil
			jDefined := errj == nil
			if iDefined != jDefined {
				return iDefined // defined sorts before undefined
			}
			if !iDefined {
				continue
			}
			cmp, ok := value.Compare(vi, vj)
			if !ok || cmp == 0 {
				continue
			}
			if term.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}
