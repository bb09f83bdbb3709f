// Package learning implements the tiered learning engine: the template,
// chunk, and version stores, the ranked strategy candidates, the selector
// that picks the cheapest applicable tier, and the engine that executes it
// with fallback down the ladder.
package learning

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/nuriwon/yakgwan/internal/domain/policy"
	"github.com/nuriwon/yakgwan/internal/infrastructure/database/redis"
	"github.com/nuriwon/yakgwan/internal/infrastructure/monitoring/logging"
	"github.com/nuriwon/yakgwan/pkg/errors"
)

// Cache key namespaces inside the shared store.
const (
	chunkKeyPrefix    = "chunk:"
	templateKeyPrefix = "tpl:"
	versionKeyPrefix  = "ver:"
)

// localCleanupFactor sets the local layer's cleanup interval relative to
// its TTL.
const localCleanupFactor = 2

// ─────────────────────────────────────────────────────────────────────────────
// Chunk store
// ─────────────────────────────────────────────────────────────────────────────

// ChunkStore caches per-chunk processing results keyed by content hash,
// with a small in-process layer in front of the shared store.  Reads extend
// the shared entry's TTL so hot chunks stay resident and cold ones age out.
//
// Writes go through a Batch: results accumulate in memory and reach the
// store only on Commit, so an aborted document leaves no partial entries.
type ChunkStore struct {
	cache  redis.Cache
	local  *gocache.Cache
	ttl    time.Duration
	logger logging.Logger
}

// NewChunkStore builds a chunk store.  chunkTTL bounds shared-store
// residency, localTTL the in-process layer.
func NewChunkStore(cache redis.Cache, chunkTTL, localTTL time.Duration, log logging.Logger) *ChunkStore {
	return &ChunkStore{
		cache:  cache,
		local:  gocache.New(localTTL, localCleanupFactor*localTTL),
		ttl:    chunkTTL,
		logger: log.Named("chunkstore"),
	}
}

// Lookup returns the cached result for a chunk hash.  A shared-store hit
// refreshes the entry's TTL and populates the local layer.
func (s *ChunkStore) Lookup(ctx context.Context, hash string) (policy.ChunkResult, bool) {
	if v, ok := s.local.Get(hash); ok {
		return v.(policy.ChunkResult), true
	}

	var result policy.ChunkResult
	err := s.cache.Get(ctx, chunkKeyPrefix+hash, &result)
	if err != nil {
		if !errors.IsCode(err, errors.ErrCodeCacheMiss) {
			s.logger.Warn("chunk lookup degraded to miss", logging.Err(err))
		}
		return policy.ChunkResult{}, false
	}

	if _, err := s.cache.Touch(ctx, chunkKeyPrefix+hash, s.ttl); err != nil {
		s.logger.Warn("chunk ttl refresh failed", logging.Err(err))
	}
	s.local.SetDefault(hash, result)
	return result, true
}

// Contains reports whether a result for the hash is cached, without
// refreshing its TTL.  The selector uses it to judge whether chunk-level
// reuse is worth anything for a document.
func (s *ChunkStore) Contains(ctx context.Context, hash string) bool {
	if _, ok := s.local.Get(hash); ok {
		return true
	}
	ok, err := s.cache.Exists(ctx, chunkKeyPrefix+hash)
	return err == nil && ok
}

// Batch buffers chunk results and the document version until Commit.
type Batch struct {
	store   *ChunkStore
	mu      sync.Mutex
	results []policy.ChunkResult
	version *policy.DocumentVersion
}

// NewBatch opens a write batch.
func (s *ChunkStore) NewBatch() *Batch { return &Batch{store: s} }

// AddResult buffers one chunk result.
func (b *Batch) AddResult(r policy.ChunkResult) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, r)
}

// SetVersion buffers the document version to record on commit.
func (b *Batch) SetVersion(v policy.DocumentVersion) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.version = &v
}

// Len returns the number of buffered chunk results.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.results)
}

// Commit writes every buffered entry to the shared store and local layer.
// Nothing is written before Commit; a batch that is simply dropped leaves
// the caches untouched.
func (b *Batch) Commit(ctx context.Context, versions *VersionStore) error {
	b.mu.Lock()
	results := b.results
	version := b.version
	b.mu.Unlock()

	for _, r := range results {
		if err := b.store.cache.Set(ctx, chunkKeyPrefix+r.Hash, r, b.store.ttl); err != nil {
			return errors.Wrap(err, errors.ErrCodeCacheError, "commit chunk result")
		}
		b.store.local.SetDefault(r.Hash, r)
	}
	if version != nil && versions != nil {
		if err := versions.Put(ctx, *version); err != nil {
			return err
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Version store
// ─────────────────────────────────────────────────────────────────────────────

// VersionStore records the chunk-hash list of the last learned version of
// each document, keyed by document identity.
type VersionStore struct {
	cache redis.Cache
	ttl   time.Duration
}

// NewVersionStore builds a version store sharing the chunk TTL.
func NewVersionStore(cache redis.Cache, ttl time.Duration) *VersionStore {
	return &VersionStore{cache: cache, ttl: ttl}
}

// Get returns the prior version for a document key, if one is cached.
func (s *VersionStore) Get(ctx context.Context, key string) (policy.DocumentVersion, bool) {
	var v policy.DocumentVersion
	if err := s.cache.Get(ctx, versionKeyPrefix+key, &v); err != nil {
		return policy.DocumentVersion{}, false
	}
	return v, true
}

// Put stores the version, replacing any prior one.
func (s *VersionStore) Put(ctx context.Context, v policy.DocumentVersion) error {
	if err := s.cache.Set(ctx, versionKeyPrefix+v.DocumentID, v, s.ttl); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "store document version")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Template store
// ─────────────────────────────────────────────────────────────────────────────

// TemplateStore holds learned document skeletons.  The working set lives in
// process for fast best-match scans; each template is also written through
// to the shared store with check-and-set so concurrent workers registering
// the same template keep exactly one copy.
type TemplateStore struct {
	cache  redis.Cache
	ttl    time.Duration
	logger logging.Logger

	mu        sync.RWMutex
	templates map[string]policy.Template
}

// NewTemplateStore builds a template store.
func NewTemplateStore(cache redis.Cache, ttl time.Duration, log logging.Logger) *TemplateStore {
	return &TemplateStore{
		cache:     cache,
		ttl:       ttl,
		logger:    log.Named("tplstore"),
		templates: make(map[string]policy.Template),
	}
}

// Register stores a template.  Returns false when a template with the same
// ID already existed in the shared store; the local working set is updated
// either way.
func (s *TemplateStore) Register(ctx context.Context, tpl policy.Template) (bool, error) {
	created, err := s.cache.SetNX(ctx, templateKeyPrefix+tpl.ID, tpl, s.ttl)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeCacheError, "register template")
	}

	s.mu.Lock()
	if _, known := s.templates[tpl.ID]; !known {
		s.templates[tpl.ID] = tpl
	}
	s.mu.Unlock()
	return created, nil
}

// Size returns the number of templates in the working set.
func (s *TemplateStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.templates)
}

// Each calls fn for every template in the working set, stopping when fn
// returns false.
func (s *TemplateStore) Each(fn func(policy.Template) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tpl := range s.templates {
		if !fn(tpl) {
			return
		}
	}
}
