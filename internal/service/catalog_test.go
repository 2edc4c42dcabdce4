package service_test

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Strob0t/standardhub/internal/domain"
	"github.com/Strob0t/standardhub/internal/domain/codingrule"
	"github.com/Strob0t/standardhub/internal/domain/feedback"
	"github.com/Strob0t/standardhub/internal/port/database"
	"github.com/Strob0t/standardhub/internal/service"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func TestCatalogReadThrough(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rule := f.seedRule(t, "DOM-003")

	c := &mapCache{data: map[string][]byte{}}
	cat := service.NewCatalogService(f.store, c, time.Minute)

	got, err := cat.CodingRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "DOM-003", got.Code)
	assert.Contains(t, c.data, "coding_rule."+strconv.FormatInt(rule.ID, 10))

	_, err = cat.CodingRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, c.sets, "second read should be served from cache")
}

func TestCatalogMissPropagatesNotFound(t *testing.T) {
	f := newFixture(t)
	cat := service.NewCatalogService(f.store, &mapCache{data: map[string][]byte{}}, time.Minute)

	_, err := cat.ArchUnitTest(context.Background(), 77)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMergeInvalidatesCatalogCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rule := f.seedRule(t, "DOM-004")

	c := &mapCache{data: map[string][]byte{}}
	cat := service.NewCatalogService(f.store, c, time.Minute)
	f.svc.SetCatalog(cat)

	_, err := cat.CodingRule(ctx, rule.ID)
	require.NoError(t, err)

	it, err := f.svc.Create(ctx, feedback.CreateCommand{
		TargetType: feedback.TargetCodingRule, TargetID: ptr(rule.ID), FeedbackType: feedback.TypeModify,
		Payload: json.RawMessage(`{"name":"renamed"}`), RiskLevel: feedback.RiskLow,
	})
	require.NoError(t, err)
	_, err = f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)

	got, err := cat.CodingRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}

func TestCatalogWithoutCache(t *testing.T) {
	f := newFixture(t)
	rule := f.seedRule(t, "DOM-005")
	cat := service.NewCatalogService(f.store, nil, 0)

	got, err := cat.CodingRule(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.Equal(t, rule.ID, got.ID)
	cat.Invalidate(context.Background(), feedback.TargetCodingRule, rule.ID)
}

func TestCatalogConcurrentMisses(t *testing.T) {
	f := newFixture(t)
	rule := f.seedRule(t, "DOM-006")
	c := &mapCache{data: map[string][]byte{}}
	cat := service.NewCatalogService(f.store, c, time.Minute)

	const readers = 16
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for range readers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := cat.CodingRule(context.Background(), rule.ID)
			if err == nil && got.Code != "DOM-006" {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.GreaterOrEqual(t, c.sets, 1)
	assert.LessOrEqual(t, c.sets, readers)
}

// pausedCatalog holds the first coding rule read after it has hit the store
// until release is closed.
type pausedCatalog struct {
	database.Catalog
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (c *pausedCatalog) GetCodingRule(ctx context.Context, id int64) (*codingrule.CodingRule, error) {
	r, err := c.Catalog.GetCodingRule(ctx, id)
	c.once.Do(func() {
		close(c.loaded)
		<-c.release
	})
	return r, err
}

func TestMergeDuringInFlightReadDoesNotCacheStaleEntity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rule := f.seedRule(t, "DOM-007")

	paused := &pausedCatalog{Catalog: f.store, loaded: make(chan struct{}), release: make(chan struct{})}
	c := &mapCache{data: map[string][]byte{}}
	cat := service.NewCatalogService(paused, c, time.Minute)
	f.svc.SetCatalog(cat)

	done := make(chan error, 1)
	go func() {
		_, err := cat.CodingRule(ctx, rule.ID)
		done <- err
	}()
	<-paused.loaded

	it, err := f.svc.Create(ctx, feedback.CreateCommand{
		TargetType: feedback.TargetCodingRule, TargetID: ptr(rule.ID), FeedbackType: feedback.TypeModify,
		Payload: json.RawMessage(`{"name":"renamed"}`), RiskLevel: feedback.RiskLow,
	})
	require.NoError(t, err)
	merged, err := f.svc.Process(ctx, feedback.ProcessCommand{FeedbackID: it.ID, Action: feedback.ActionLLMApprove})
	require.NoError(t, err)
	require.Equal(t, feedback.StatusMerged, merged.Status)

	close(paused.release)
	require.NoError(t, <-done)

	got, err := cat.CodingRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}
