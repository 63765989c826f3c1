package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"golang.org/x/sync/singleflight"
)

// RedisCatalog stores each form's catalog as one JSON value under
// catalog:form:{id} and falls back to the loader on a miss.
type RedisCatalog struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	log    *slog.Logger
	sf     singleflight.Group
}

func NewRedisCatalog(client *redis.Client, loader QuestionLoader, ttl time.Duration, logger *slog.Logger) *RedisCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCatalog{client: client, loader: loader, ttl: ttl, log: logger}
}

func (r *RedisCatalog) Questions(ctx context.Context, formID questionnaire.FormID) ([]questionnaire.Question, error) {
	if qs, ok := r.cached(ctx, formID); ok {
		return qs, nil
	}

	k := key(formID)
	result, err, _ := r.sf.Do(k, func() (any, error) {
		lctx, cancel := loadContext(ctx)
		defer cancel()
		// Re-check in case a concurrent caller filled it.
		if qs, ok := r.cached(lctx, formID); ok {
			return qs, nil
		}
		qs, err := r.loader.LoadQuestions(lctx, formID)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(qs)
		if err != nil {
			return nil, err
		}
		if err := r.client.Set(lctx, k, payload, ttlWithJitter(r.ttl)).Err(); err != nil {
			r.log.Warn("catalog cache write failed", slog.String("key", k), slog.Any("error", err))
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]questionnaire.Question), nil
}

func (r *RedisCatalog) cached(ctx context.Context, formID questionnaire.FormID) ([]questionnaire.Question, bool) {
	raw, err := r.client.Get(ctx, key(formID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn("catalog cache read failed", slog.Any("error", err))
		}
		return nil, false
	}
	var qs []questionnaire.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, false
	}
	return qs, true
}

func (r *RedisCatalog) Invalidate(ctx context.Context, formID questionnaire.FormID) error {
	return r.client.Del(ctx, key(formID), key(questionnaire.AllForms)).Err()
}

func (r *RedisCatalog) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
