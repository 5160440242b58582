package netlink

//go:generate go tool golang.org/x/tools/cmd/stringer -type=Outcome

// Outcome is what decoding a single kernel message amounts to. Failures are
// reported through the accompanying error instead.
type Outcome int

const (
	// Skip means the message didn't match the filter. It's an expected
	// result, not an error.
	Skip Outcome = iota

	// Keep means the record was fully decoded and matched the filter.
	Keep
)
