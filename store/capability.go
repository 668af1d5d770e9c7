package store

import (
	"github.com/brain2labs/docstore/docerrors"
	"github.com/brain2labs/docstore/lang"
)

// Feature is one bit of backend capability (spec.md §4.5). The facade
// checks the parsed statement against the target adapter's feature set
// before dispatch, so unsupported combinations fail fast as NotSupported
// rather than as a remote-call error.
type Feature int

const (
	FeatureEtag Feature = 1 << iota
	FeatureTypeBinary
	FeatureIndexWildcard
	FeatureIndexVector
	FeatureUpdateArrayMove
	FeatureTransactCrossCollection
	FeatureContains
	FeatureNumericRangeOnStrings
	FeatureFloatIncrement
)

// FeatureSet is the bitmask an adapter publishes via Adapter.Supports.
type FeatureSet Feature

func (fs FeatureSet) Has(f Feature) bool { return Feature(fs)&f != 0 }

// NewFeatureSet ORs the given features into one set.
func NewFeatureSet(features ...Feature) FeatureSet {
	var fs Feature
	for _, f := range features {
		fs |= f
	}
	return FeatureSet(fs)
}

// RequireFeature returns a NotSupported error naming the missing feature,
// or nil if fs has it. $etag is the single source of truth for whether a
// backend can serve optimistic concurrency (spec.md §9 Open Question 3):
// an adapter that lacks FeatureEtag must be rejected here, before dispatch,
// never silently downgraded to "no etag returned".
func RequireFeature(fs FeatureSet, f Feature, name string) error {
	if fs.Has(f) {
		return nil
	}
	return docerrors.NewNotSupported("FEATURE_UNSUPPORTED", "backend does not support "+name)
}

// requirement names one feature demanded by a parsed statement's shape.
type requirement struct {
	Feature Feature
	Name    string
}

// whereRequirements walks a bound WHERE expression and reports which
// features its functions/operators demand, so the facade can reject an
// unsupported combination before dispatch regardless of which adapter
// eventually runs it (spec.md §4.5).
func whereRequirements(e lang.Expr) []requirement {
	var reqs []requirement
	walkExpr(e, func(x lang.Expr) {
		if fe, ok := x.(*lang.FieldExpr); ok {
			if segs := fe.Path.Segments(); len(segs) == 1 && segs[0].System && segs[0].Field == "etag" {
				reqs = append(reqs, requirement{FeatureEtag, "$etag"})
			}
		}
		if f, ok := x.(*lang.FuncExpr); ok {
			switch f.Name {
			case "contains", "starts_with":
				reqs = append(reqs, requirement{FeatureContains, "contains()/starts_with()"})
			}
		}
	})
	return reqs
}

// setRequirements reports which features a bound SET clause's mutators
// demand.
func setRequirements(assignments []lang.Assignment) []requirement {
	var reqs []requirement
	for _, a := range assignments {
		if a.Mutator == lang.MutMove {
			reqs = append(reqs, requirement{FeatureUpdateArrayMove, "move()"})
		}
	}
	return reqs
}

func walkExpr(e lang.Expr, visit func(lang.Expr)) {
	if e == nil {
		return
	}
	visit(e)
	switch x := e.(type) {
	case *lang.FuncExpr:
		for _, a := range x.Args {
			walkExpr(a, visit)
		}
	case *lang.BinaryExpr:
		walkExpr(x.Left, visit)
		walkExpr(x.Right, visit)
	case *lang.NotExpr:
		walkExpr(x.X, visit)
	case *lang.InExpr:
		walkExpr(x.X, visit)
		for _, item := range x.List {
			walkExpr(item, visit)
		}
	case *lang.BetweenExpr:
		walkExpr(x.X, visit)
		walkExpr(x.Lo, visit)
		walkExpr(x.Hi, visit)
	}
}
