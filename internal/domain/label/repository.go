package label

import (
	"context"
	"errors"
)

// ErrNotFound indicates a specification is not in the catalogue.
var ErrNotFound = errors.New("specification not found")

// Catalogue is the port for the read-only reference data.
type Catalogue interface {
	// Specifications lists every specification in catalogue order.
	Specifications(ctx context.Context) ([]Specification, error)

	// Samples returns the label samples referenced by the named specification,
	// in reference order. Referenced IDs missing from the base catalogue are skipped.
	// Returns ErrNotFound if the specification has no reference list.
	Samples(ctx context.Context, specName string) ([]*Sample, error)
}
