package domain

import "fmt"

// FailurePolicy decides what happens to the rendered output when an evaluation fails.
type FailurePolicy string

const (
	FailureMarker FailurePolicy = "marker" // Replace output with an error marker (default)
	FailureRetain FailurePolicy = "retain" // Keep the last successful output
)

// Ordering decides which of several overlapping evaluations gets rendered.
type Ordering string

const (
	OrderLastSubmitted Ordering = "last-submitted" // Stale completions are discarded (default)
	OrderLastCompleted Ordering = "last-completed" // Whatever finishes last is rendered
)

// ErrorMarkerPrefix starts every output written under FailureMarker.
const ErrorMarkerPrefix = "error: "

// ErrorMarker formats the text shown in place of a result when err is surfaced.
func ErrorMarker(err error) string {
	return ErrorMarkerPrefix + err.Error()
}

// ParseFailurePolicy validates a policy name. Empty selects the default.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "":
		return FailureMarker, nil
	case FailureMarker, FailureRetain:
		return FailurePolicy(s), nil
	}
	return "", fmt.Errorf("invalid failure policy %q (want %q or %q)", s, FailureMarker, FailureRetain)
}

// ParseOrdering validates an ordering name. Empty selects the default.
func ParseOrdering(s string) (Ordering, error) {
	switch Ordering(s) {
	case "":
		return OrderLastSubmitted, nil
	case OrderLastSubmitted, OrderLastCompleted:
		return Ordering(s), nil
	}
	return "", fmt.Errorf("invalid ordering %q (want %q or %q)", s, OrderLastSubmitted, OrderLastCompleted)
}
