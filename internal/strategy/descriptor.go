// Package strategy discovers strategy definitions on disk and matches requested
// strategy names against them.
package strategy

import (
	"context"

	"stratguard/internal/config"
)

// Descriptor identifies one discoverable strategy. Name is unique within a single
// discovery pass; failed entries carry LoadError and an empty Name.
type Descriptor struct {
	Name      string
	Location  string
	Meta      map[string]string
	LoadError string
}

// Failed reports whether the strategy could not be loaded.
func (d Descriptor) Failed() bool { return d.LoadError != "" }

// Discoverer lists the strategies available to a run.
type Discoverer interface {
	// SearchAll returns every strategy found under the configured strategy path.
	// With enumFailed=false entries that failed to load are omitted.
	SearchAll(ctx context.Context, cfg *config.Config, enumFailed, recursive bool) ([]Descriptor, error)
}
