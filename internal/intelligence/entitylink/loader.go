// Package entitylink resolves disease mentions in policy text against a
// versioned disease ontology.  Matching is tiered: exact name or alias
// lookup, then KCD code lookup, then fuzzy edit-distance matching, each tier
// short-circuiting the next.  The ontology can be reloaded atomically while
// linking continues against the previous snapshot.
package entitylink

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// LoadOntology reads and validates a YAML ontology file.
func LoadOntology(path string) (*policy.Ontology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.ErrCodeOntologyLoadFailed,
			fmt.Sprintf("read ontology file %s", path)).WithCause(err)
	}

	var ont policy.Ontology
	if err := yaml.Unmarshal(raw, &ont); err != nil {
		return nil, errors.New(errors.ErrCodeOntologyInvalid,
			fmt.Sprintf("parse ontology file %s", path)).WithCause(err)
	}

	if err := validateOntology(&ont); err != nil {
		return nil, err
	}
	return &ont, nil
}

// validateOntology enforces the structural rules a snapshot must satisfy
// before it can replace the active one.
func validateOntology(ont *policy.Ontology) error {
	if len(ont.Entities) == 0 {
		return errors.New(errors.ErrCodeOntologyInvalid, "ontology has no entities")
	}
	seen := make(map[string]bool, len(ont.Entities))
	for i, e := range ont.Entities {
		if e.ID == "" {
			return errors.New(errors.ErrCodeOntologyInvalid,
				fmt.Sprintf("entity at index %d has no id", i))
		}
		if e.Name == "" {
			return errors.New(errors.ErrCodeOntologyInvalid,
				fmt.Sprintf("entity %s has no name", e.ID))
		}
		if seen[e.ID] {
			return errors.New(errors.ErrCodeOntologyInvalid,
				fmt.Sprintf("duplicate entity id %s", e.ID))
		}
		seen[e.ID] = true
	}
	return nil
}
