package sqlite

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/brain2labs/docstore/docerrors"
	"github.com/brain2labs/docstore/lang"
	"github.com/brain2labs/docstore/path"
	"github.com/brain2labs/docstore/store"
	"github.com/brain2labs/docstore/value"
)

func encodeBody(v value.Value) (string, error) {
	b, err := json.Marshal(value.GoValue(v))
	if err != nil {
		return "", docerrors.NewInternal("SQLITE_ENCODE_FAILED", err.Error())
	}
	return string(b), nil
}

func decodeBody(body string) (value.Value, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return value.Value{}, docerrors.NewInternal("SQLITE_DECODE_FAILED", err.Error())
	}
	v, err := value.FromGoValue(raw)
	if err != nil {
		return value.Value{}, docerrors.NewInternal("SQLITE_DECODE_FAILED", err.Error())
	}
	return v, nil
}

func etagOf(version int64) string { return fmt.Sprintf("v%d", version) }

func project(doc value.Value, sel *lang.Select) (value.Value, error) {
	if sel.Star {
		return doc, nil
	}
	out := value.Null()
	for _, term := range sel.Terms {
		v, err := path.Get(doc, term.Path)
		if err != nil {
			continue
		}
		out, err = path.Set(out, term.Path, v)
		if err != nil {
			return value.Value{}, err
		}
	}
	return out, nil
}

func sortItems(items []store.Item, ob *lang.OrderBy) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, term := range ob.Terms {
			vi, erri := path.Get(items[i].Value, term.Path)
			vj, errj := path.Get(items[j].Value, term.Path)
			iDefined := erri == nil
			jDefined := errj == nil
			if iDefined != jDefined {
				return iDefined
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
