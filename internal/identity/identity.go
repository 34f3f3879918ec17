// Package identity derives personal attributes from identity document
// numbers. Parsing is strictly best-effort: implementations report
// failure through the ok return and never through panics or errors, so a
// malformed number in one transcript can never abort a dispatch batch.
package identity

import "time"

// Attributes holds the fields derived from an identity document number.
type Attributes struct {
	Gender       string
	BirthDate    time.Time
	Age          int
	Registration string
}

// Parser derives Attributes from a raw identity number.
// Returns (nil, false) for anything unparseable.
type Parser interface {
	Parse(raw string) (*Attributes, bool)
}
