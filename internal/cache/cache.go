// Package cache memoizes finished crawl results by normalized query, so a
// repeated search within the TTL is served without touching the marketplace.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/maltedev/aliexpress-scraper/internal/models"
)

// Cache is a best-effort result store. Lookup misses and backend errors both
// surface as (nil, false).
type Cache interface {
	Get(ctx context.Context, query string) (*models.ScrapeResult, bool)
	Set(ctx context.Context, query string, result *models.ScrapeResult)
}

// Key normalizes a query for cache lookup.
func Key(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Memory is an in-process LRU with per-entry expiry.
type Memory struct {
	lru *expirable.LRU[string, *models.ScrapeResult]
}

func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 128
	}
	return &Memory{
		lru: expirable.NewLRU[string, *models.ScrapeResult](size, nil, ttl),
	}
}

func (m *Memory) Get(_ context.Context, query string) (*models.ScrapeResult, bool) {
	return m.lru.Get(Key(query))
}

func (m *Memory) Set(_ context.Context, query string, result *models.ScrapeResult) {
	m.lru.Add(Key(query), result)
}

// None disables caching.
type None struct{}

func (None) Get(context.Context, string) (*models.ScrapeResult, bool) { return nil, false }

func (None) Set(context.Context, string, *models.ScrapeResult) {}
