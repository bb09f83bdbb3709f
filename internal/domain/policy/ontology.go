package policy

import "strings"

// ─────────────────────────────────────────────────────────────────────────────
// Disease ontology entities and link results
// ─────────────────────────────────────────────────────────────────────────────

// DiseaseEntity is one disease concept from the ontology file: a canonical
// ID, a preferred Korean name, alternate names, and the KCD codes it covers.
type DiseaseEntity struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Aliases  []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	KCDCodes []string `json:"kcd_codes,omitempty" yaml:"kcd_codes,omitempty"`
	Category string   `json:"category,omitempty" yaml:"category,omitempty"`

	// Severity grades the disease for coverage purposes: "critical",
	// "major", "minor".  Informational; linking never consults it.
	Severity string `json:"severity,omitempty" yaml:"severity,omitempty"`
}

// AllNames returns the preferred name followed by aliases.
func (d DiseaseEntity) AllNames() []string {
	return append([]string{d.Name}, d.Aliases...)
}

// CoversCode reports whether the entity lists the KCD code, case-insensitive.
func (d DiseaseEntity) CoversCode(code string) bool {
	for _, c := range d.KCDCodes {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}

// MatchMethod identifies which linking tier produced a match.
type MatchMethod string

const (
	// MatchExact means the mention equalled a name or alias exactly
	// (case-insensitive, whitespace-normalized).
	MatchExact MatchMethod = "exact"

	// MatchKCD means the mention carried a KCD code found in an entity's
	// code list.
	MatchKCD MatchMethod = "kcd"

	// MatchFuzzy means edit-distance similarity reached the fuzzy
	// threshold.
	MatchFuzzy MatchMethod = "fuzzy"

	// MatchNone means no tier matched.
	MatchNone MatchMethod = "none"
)

// EntityLinkResult records the outcome of linking one mention.
type EntityLinkResult struct {
	// Mention is the surface text that was looked up.
	Mention string `json:"mention"`

	// Entity is the linked entity, nil when Method is MatchNone.
	Entity *DiseaseEntity `json:"entity,omitempty"`

	// Method is the tier that produced the match.
	Method MatchMethod `json:"method"`

	// MatchedName is the ontology name or alias the mention resolved
	// against (the KCD code for MatchKCD); empty for MatchNone.  Kept for
	// curation, so a fuzzy hit shows which catalogue spelling won.
	MatchedName string `json:"matched_name,omitempty"`

	// Score is the similarity score for fuzzy matches, 1.0 for exact and
	// KCD matches, and 0 for MatchNone.
	Score float64 `json:"score"`
}

// Linked reports whether the mention resolved to an entity.
func (r EntityLinkResult) Linked() bool { return r.Method != MatchNone && r.Entity != nil }

// Ontology is a versioned snapshot of the disease catalogue.  Snapshots are
// immutable after construction; reloads swap in a whole new snapshot.
type Ontology struct {
	Version  string          `json:"version" yaml:"version"`
	Entities []DiseaseEntity `json:"entities" yaml:"entities"`
}

// Size returns the number of entities in the snapshot.
func (o *Ontology) Size() int {
	if o == nil {
		return 0
	}
	return len(o.Entities)
}
