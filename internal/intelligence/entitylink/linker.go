package entitylink

import (
	"regexp"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// reMentionKCD finds an embedded KCD code inside a mention such as
// "소액암(C77)".
var reMentionKCD = regexp.MustCompile(`\b[A-Z]\d{2}\b`)

// indexedName ties a normalized name key back to the entity and the
// catalogue spelling it came from.
type indexedName struct {
	entity *policy.DiseaseEntity
	name   string
}

// snapshot is one immutable indexed view of the ontology.  Lookups touch
// only the snapshot, so a reload swapping the pointer never disturbs an
// in-flight Link call.
type snapshot struct {
	ontology *policy.Ontology
	byName   map[string]indexedName
	byCode   map[string]*policy.DiseaseEntity
}

func buildSnapshot(ont *policy.Ontology) *snapshot {
	s := &snapshot{
		ontology: ont,
		byName:   make(map[string]indexedName),
		byCode:   make(map[string]*policy.DiseaseEntity),
	}
	for i := range ont.Entities {
		e := &ont.Entities[i]
		for _, name := range e.AllNames() {
			key := normalizeMention(name)
			if _, dup := s.byName[key]; !dup {
				s.byName[key] = indexedName{entity: e, name: name}
			}
		}
		for _, code := range e.KCDCodes {
			key := strings.ToUpper(code)
			if _, dup := s.byCode[key]; !dup {
				s.byCode[key] = e
			}
		}
	}
	return s
}

// normalizeMention canonicalizes a mention for exact lookup: NFC, lowercase,
// collapsed whitespace.
func normalizeMention(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(s))), " ")
}

// Linker resolves mentions against the active ontology snapshot.  All
// methods are safe for concurrent use.
type Linker struct {
	mu        sync.RWMutex
	snap      *snapshot
	threshold float64
	logger    logging.Logger
}

// NewLinker builds a linker over an already-loaded ontology.  threshold is
// the minimum fuzzy similarity, normally 0.8.
func NewLinker(ont *policy.Ontology, threshold float64, logger logging.Logger) *Linker {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Linker{
		snap:      buildSnapshot(ont),
		threshold: threshold,
		logger:    logger.Named("entitylink"),
	}
}

// NewLinkerFromFile loads the ontology file and builds a linker.
func NewLinkerFromFile(path string, threshold float64, logger logging.Logger) (*Linker, error) {
	ont, err := LoadOntology(path)
	if err != nil {
		return nil, err
	}
	return NewLinker(ont, threshold, logger), nil
}

// Version returns the active snapshot's ontology version.
func (l *Linker) Version() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.ontology.Version
}

// Size returns the number of entities in the active snapshot.
func (l *Linker) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap.ontology.Size()
}

// Reload loads the ontology file and atomically swaps it in.  On any load
// or validation failure the previous snapshot stays active and the error is
// returned.
func (l *Linker) Reload(path string) error {
	ont, err := LoadOntology(path)
	if err != nil {
		l.logger.Error("ontology reload rejected, keeping active snapshot",
			logging.String("path", path), logging.Err(err))
		return errors.Wrap(err, errors.ErrCodeOntologyReloadFailed, "reload ontology")
	}

	l.mu.Lock()
	old := l.snap.ontology.Version
	l.snap = buildSnapshot(ont)
	l.mu.Unlock()

	l.logger.Info("ontology reloaded",
		logging.String("old_version", old),
		logging.String("new_version", ont.Version),
		logging.Int("entities", ont.Size()))
	return nil
}

// Link resolves one mention.  Tiers run in order and short-circuit: an
// exact name hit wins over a KCD hit, which wins over fuzzy.
func (l *Linker) Link(mention string) policy.EntityLinkResult {
	l.mu.RLock()
	snap := l.snap
	threshold := l.threshold
	l.mu.RUnlock()

	result := policy.EntityLinkResult{Mention: mention, Method: policy.MatchNone}

	key := normalizeMention(mention)
	if key == "" {
		return result
	}

	if in, ok := snap.byName[key]; ok {
		result.Entity, result.Method, result.Score = in.entity, policy.MatchExact, 1.0
		result.MatchedName = in.name
		return result
	}

	for _, code := range reMentionKCD.FindAllString(mention, -1) {
		if e, ok := snap.byCode[code]; ok {
			result.Entity, result.Method, result.Score = e, policy.MatchKCD, 1.0
			result.MatchedName = code
			return result
		}
	}

	if in, score := snap.bestFuzzy(key, threshold); in.entity != nil {
		result.Entity, result.Method, result.Score = in.entity, policy.MatchFuzzy, score
		result.MatchedName = in.name
	}
	return result
}

// LinkCode resolves a bare KCD code, used when the extractor has already
// isolated the code from its surrounding text.
func (l *Linker) LinkCode(code string) policy.EntityLinkResult {
	l.mu.RLock()
	snap := l.snap
	l.mu.RUnlock()

	result := policy.EntityLinkResult{Mention: code, Method: policy.MatchNone}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if e, ok := snap.byCode[normalized]; ok {
		result.Entity, result.Method, result.Score = e, policy.MatchKCD, 1.0
		result.MatchedName = normalized
	}
	return result
}

// bestFuzzy scans every indexed name for the highest edit-distance
// similarity at or above threshold.  Equal scores resolve to the
// lexicographically smallest key so ties are stable across runs.
func (s *snapshot) bestFuzzy(key string, threshold float64) (indexedName, float64) {
	var (
		best      indexedName
		bestKey   string
		bestScore float64
	)
	for name, in := range s.byName {
		score := similarity(key, name)
		if score < threshold || score < bestScore {
			continue
		}
		if score > bestScore || best.entity == nil || name < bestKey {
			best, bestKey, bestScore = in, name, score
		}
	}
	return best, bestScore
}

// similarity is normalized Levenshtein similarity over runes:
// 1 - distance/max(len).  Identical strings score 1, disjoint strings
// approach 0.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes edit distance with a two-row table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
