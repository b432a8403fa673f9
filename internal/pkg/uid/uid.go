// Package uid generates identifiers.
//
// StringID is used for correlation IDs and JWT IDs, NumberID for sortable
// database keys such as delivery log rows.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates time-ordered numeric identifiers.
type NumberID interface {
	Generate() int64
}
