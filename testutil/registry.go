package testutil

import (
	"time"

	"github.com/skosovsky/plantool"
)

// NewTestRegistry returns a Registry with long timeout and panic recovery enabled,
// suitable for tests.
func NewTestRegistry(tools ...plantool.Tool) *plantool.Registry {
	reg := plantool.NewRegistry(
		plantool.WithDefaultTimeout(30*time.Second),
		plantool.WithRecoverPanics(true),
	)
	for _, t := range tools {
		reg.Register(t)
	}
	return reg
}
