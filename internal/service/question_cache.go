package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/model"
)

// ViewCache holds materialized question views. A miss returns (nil, nil).
type ViewCache interface {
	Get(ctx context.Context, questionID int) (*model.QuestionView, error)
	Set(ctx context.Context, view *model.QuestionView) error
	Invalidate(ctx context.Context, questionID int) error
}

// RedisViewCache stores question views as JSON strings with a TTL.
type RedisViewCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisViewCache creates a new RedisViewCache.
func NewRedisViewCache(rdb *redis.Client, ttl time.Duration) *RedisViewCache {
	return &RedisViewCache{rdb: rdb, ttl: ttl}
}

// cachedView flattens the Variant interface into one field per type so the
// JSON round trip keeps the concrete type.
type cachedView struct {
	Question       model.Question        `json:"question"`
	SingleChoice   *model.SingleChoice   `json:"single_choice,omitempty"`
	MultipleChoice *model.MultipleChoice `json:"multiple_choice,omitempty"`
	Assignment     *model.Assignment     `json:"assignment,omitempty"`
}

func toCached(v *model.QuestionView) cachedView {
	c := cachedView{Question: v.Question}
	switch variant := v.Variant.(type) {
	case *model.SingleChoice:
		c.SingleChoice = variant
	case *model.MultipleChoice:
		c.MultipleChoice = variant
	case *model.Assignment:
		c.Assignment = variant
	}
	return c
}

func (c cachedView) view() *model.QuestionView {
	v := &model.QuestionView{Question: c.Question}
	switch {
	case c.SingleChoice != nil:
		v.Variant = c.SingleChoice
	case c.MultipleChoice != nil:
		v.Variant = c.MultipleChoice
	case c.Assignment != nil:
		v.Variant = c.Assignment
	}
	return v
}

func (c *RedisViewCache) Get(ctx context.Context, questionID int) (*model.QuestionView, error) {
	raw, err := c.rdb.Get(ctx, config.CacheKey.QuestionViewKey(questionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get question view: %w", err)
	}

	var cached cachedView
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("decode question view: %w", err)
	}
	return cached.view(), nil
}

func (c *RedisViewCache) Set(ctx context.Context, view *model.QuestionView) error {
	raw, err := json.Marshal(toCached(view))
	if err != nil {
		return fmt.Errorf("encode question view: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.QuestionViewKey(view.ID), raw, c.ttl).Err()
}

func (c *RedisViewCache) Invalidate(ctx context.Context, questionID int) error {
	return c.rdb.Del(ctx, config.CacheKey.QuestionViewKey(questionID)).Err()
}
