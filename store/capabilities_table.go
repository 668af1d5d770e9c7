package store

// CapabilityTable is the static, data-driven feature registry of spec.md
// §4.5: "the test matrices in the source encode the canonical exclusion
// lists ... these lists belong in the registry as data." Adapters consult
// it through their own Supports method; it is exported here so tests and
// operators can introspect or override it without touching adapter code.
var CapabilityTable = map[string]FeatureSet{
	"memory": NewFeatureSet(
		FeatureEtag,
		FeatureTypeBinary,
		FeatureIndexWildcard,
		FeatureUpdateArrayMove,
		FeatureTransactCrossCollection,
		FeatureContains,
		FeatureNumericRangeOnStrings,
		FeatureFloatIncrement,
	),
	"sqlite": NewFeatureSet(
		FeatureEtag,
		FeatureTypeBinary,
		FeatureUpdateArrayMove,
		FeatureContains,
		FeatureNumericRangeOnStrings,
		FeatureFloatIncrement,
	),
	"dynamodb": NewFeatureSet(
		FeatureEtag,
		FeatureTypeBinary,
		FeatureUpdateArrayMove,
		FeatureFloatIncrement,
	),
	// Canonical exclusions named in spec.md §4.5, kept here as reference
	// entries for adapters not yet implemented in this module.
	"firestore": NewFeatureSet(
		FeatureEtag,
		FeatureTypeBinary,
		FeatureUpdateArrayMove,
		FeatureFloatIncrement,
		// Firestore lacks contains().
	),
	"redis": NewFeatureSet(
		FeatureEtag,
		// Redis lacks numeric range comparison on string-stored values.
	),
	"memcached": NewFeatureSet(
	// Memcached lacks etags and float increments entirely.
	),
}
