package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"legiseye/internal/model"
)

// AnalysisCache keeps finished analyses and their translations.
type AnalysisCache struct {
	client         *redisv9.Client
	analysisTTL    time.Duration
	translationTTL time.Duration
}

func NewAnalysisCache(client *redisv9.Client, analysisTTL, translationTTL time.Duration) *AnalysisCache {
	if analysisTTL <= 0 {
		analysisTTL = 10 * time.Minute
	}
	if translationTTL <= 0 {
		translationTTL = 24 * time.Hour
	}
	return &AnalysisCache{
		client:         client,
		analysisTTL:    analysisTTL,
		translationTTL: translationTTL,
	}
}

func (c *AnalysisCache) Get(ctx context.Context, documentID uint) (*model.DocumentAnalysis, error) {
	return c.get(ctx, analysisKey(documentID))
}

func (c *AnalysisCache) Set(ctx context.Context, analysis *model.DocumentAnalysis) error {
	return c.set(ctx, analysisKey(analysis.DocumentID), analysis, c.analysisTTL)
}

func (c *AnalysisCache) GetTranslation(ctx context.Context, documentID uint, lang string) (*model.DocumentAnalysis, error) {
	return c.get(ctx, translationKey(documentID, lang))
}

func (c *AnalysisCache) SetTranslation(ctx context.Context, lang string, analysis *model.DocumentAnalysis) error {
	if err := c.set(ctx, translationKey(analysis.DocumentID, lang), analysis, c.translationTTL); err != nil {
		return err
	}
	if err := c.client.SAdd(ctx, translationIndexKey(analysis.DocumentID), lang).Err(); err != nil {
		return fmt.Errorf("redis index translation failed: %w", err)
	}
	return nil
}

// Invalidate drops the analysis and every cached translation of it.
func (c *AnalysisCache) Invalidate(ctx context.Context, documentID uint) error {
	langs, err := c.client.SMembers(ctx, translationIndexKey(documentID)).Result()
	if err != nil && !errors.Is(err, redisv9.Nil) {
		return fmt.Errorf("redis list translations failed: %w", err)
	}
	keys := []string{analysisKey(documentID), translationIndexKey(documentID)}
	for _, lang := range langs {
		keys = append(keys, translationKey(documentID, lang))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis invalidate analysis failed: %w", err)
	}
	return nil
}

func (c *AnalysisCache) get(ctx context.Context, key string) (*model.DocumentAnalysis, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redisv9.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s failed: %w", key, err)
	}
	var analysis model.DocumentAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		return nil, fmt.Errorf("unmarshal cached analysis failed: %w", err)
	}
	return &analysis, nil
}

func (c *AnalysisCache) set(ctx context.Context, key string, analysis *model.DocumentAnalysis, ttl time.Duration) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis cache failed: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", key, err)
	}
	return nil
}

func analysisKey(documentID uint) string {
	return fmt.Sprintf("analysis:%d", documentID)
}

func translationKey(documentID uint, lang string) string {
	return fmt.Sprintf("analysis:%d:lang:%s", documentID, lang)
}

func translationIndexKey(documentID uint) string {
	return fmt.Sprintf("analysis:%d:langs", documentID)
}
