// Package service contains application services.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Strob0t/standardhub/internal/domain/archunittest"
	"github.com/Strob0t/standardhub/internal/domain/checklistitem"
	"github.com/Strob0t/standardhub/internal/domain/classtemplate"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/domain/ruleexample"
	"github.com/Strob0t/standardhub/internal/port/cache"
	"github.com/Strob0t/standardhub/internal/port/database"
)

// CatalogService serves catalogue entity reads through an optional cache.
// Entries are dropped when a merge touches the entity. Concurrent misses for
// the same key share one load. A load that overlaps an invalidation of its
// key never writes its result to the cache.
type CatalogService struct {
	cat   database.Catalog
	cache cache.Cache
	ttl   time.Duration
	loads singleflight.Group

	mu   sync.Mutex
	gens map[string]uint64
}

// NewCatalogService creates a CatalogService. c may be nil to disable caching.
func NewCatalogService(cat database.Catalog, c cache.Cache, ttl time.Duration) *CatalogService {
	return &CatalogService{cat: cat, cache: c, ttl: ttl, gens: make(map[string]uint64)}
}

func (s *CatalogService) CodingRule(ctx context.Context, id int64) (*codingrule.CodingRule, error) {
	return readThrough(ctx, s, feedback.TargetCodingRule, id, s.cat.GetCodingRule)
}

func (s *CatalogService) RuleExample(ctx context.Context, id int64) (*ruleexample.RuleExample, error) {
	return readThrough(ctx, s, feedback.TargetRuleExample, id, s.cat.GetRuleExample)
}

func (s *CatalogService) ClassTemplate(ctx context.Context, id int64) (*classtemplate.ClassTemplate, error) {
	return readThrough(ctx, s, feedback.TargetClassTemplate, id, s.cat.GetClassTemplate)
}

func (s *CatalogService) ChecklistItem(ctx context.Context, id int64) (*checklistitem.ChecklistItem, error) {
	return readThrough(ctx, s, feedback.TargetChecklistItem, id, s.cat.GetChecklistItem)
}

func (s *CatalogService) ArchUnitTest(ctx context.Context, id int64) (*archunittest.ArchUnitTest, error) {
	return readThrough(ctx, s, feedback.TargetArchUnitTest, id, s.cat.GetArchUnitTest)
}

// Invalidate drops the cached copy of one entity. Failures are logged; the
// entry then ages out with its TTL.
func (s *CatalogService) Invalidate(ctx context.Context, tt feedback.TargetType, id int64) {
	if s.cache == nil {
		return
	}
	key := cacheKey(tt, id)
	s.mu.Lock()
	s.gens[key]++
	s.mu.Unlock()
	s.loads.Forget(key)

	if err := s.cache.Delete(ctx, key); err != nil {
		slog.WarnContext(ctx, "catalog cache invalidation failed", "key", key, "error", err)
	}
}

func (s *CatalogService) generation(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[key]
}

// cacheKey uses the NATS subject alphabet so keys are valid in a KV bucket.
func cacheKey(tt feedback.TargetType, id int64) string {
	return fmt.Sprintf("%s.%d", strings.ToLower(string(tt)), id)
}

// readThrough returns the cached entity or loads it and fills the cache.
// Cache errors never fail a read.
func readThrough[T any](ctx context.Context, s *CatalogService, tt feedback.TargetType, id int64, load func(context.Context, int64) (*T, error)) (*T, error) {
	if s.cache == nil {
		return load(ctx, id)
	}

	key := cacheKey(tt, id)
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "catalog cache read failed", "key", key, "error", err)
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return &v, nil
		}
		_ = s.cache.Delete(ctx, key)
	}

	shared, err, _ := s.loads.Do(key, func() (any, error) {
		gen := s.generation(key)
		v, err := load(ctx, id)
		if err != nil {
			return nil, err
		}
		s.fill(ctx, key, gen, v)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return shared.(*T), nil
}

// fill caches v unless key was invalidated after the load began. An
// invalidation racing the write is caught by the second check.
func (s *CatalogService) fill(ctx context.Context, key string, gen uint64, v any) {
	if s.generation(key) != gen {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		slog.WarnContext(ctx, "catalog cache write failed", "key", key, "error", err)
		return
	}
	if s.generation(key) != gen {
		_ = s.cache.Delete(ctx, key)
	}
}
