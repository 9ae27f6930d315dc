package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/12008yz/chibox-reveal/internal/config"
	"github.com/12008yz/chibox-reveal/internal/models"
)

type RedisService struct {
	client *redis.Client
	ctx    context.Context
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx := context.Background()

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{client: client, ctx: ctx}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) StoreUserSession(session *models.UserSession, expiry time.Duration) error {
	key := fmt.Sprintf(KeyUserSession, session.UserID, session.SessionID)

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	return s.client.Set(s.ctx, key, data, expiry).Err()
}

func (s *RedisService) GetUserSession(userID int64, sessionID string) (*models.UserSession, error) {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err != nil {
		return nil, err
	}

	var session models.UserSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, err
	}

	session.LastAccessed = time.Now()
	updatedData, _ := json.Marshal(session)
	s.client.Set(s.ctx, key, updatedData, TTLUserSession)

	return &session, nil
}

func (s *RedisService) DeleteUserSession(userID int64, sessionID string) error {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)
	return s.client.Del(s.ctx, key).Err()
}

// CacheCaseItems stores the annotated item set for a preview session. A new
// fetch replaces the whole set.
func (s *RedisService) CacheCaseItems(caseID string, items []models.CaseItem) error {
	key := fmt.Sprintf(KeyCaseItems, caseID)

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to marshal case items: %w", err)
	}

	return s.client.Set(s.ctx, key, data, TTLCaseItems).Err()
}

func (s *RedisService) GetCachedCaseItems(caseID string) ([]models.CaseItem, error) {
	key := fmt.Sprintf(KeyCaseItems, caseID)

	data, err := s.client.Get(s.ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached case items: %w", err)
	}

	var items []models.CaseItem
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal case items: %w", err)
	}
	return items, nil
}

func (s *RedisService) InvalidateCaseItems(caseID string) error {
	key := fmt.Sprintf(KeyCaseItems, caseID)
	return s.client.Del(s.ctx, key).Err()
}

// RecordDailyDrop remembers that the user already received this item from
// the daily case today; the set powers exclusion annotations.
func (s *RedisService) RecordDailyDrop(userID int64, itemID string) error {
	key := fmt.Sprintf(KeyDailyDrops, userID, time.Now().UTC().Format(DailyDateLayout))

	if err := s.client.SAdd(s.ctx, key, itemID).Err(); err != nil {
		return fmt.Errorf("failed to record daily drop: %w", err)
	}
	s.client.Expire(s.ctx, key, TTLDailyDrops)
	return nil
}

func (s *RedisService) GetDailyDrops(userID int64) (map[string]bool, error) {
	key := fmt.Sprintf(KeyDailyDrops, userID, time.Now().UTC().Format(DailyDateLayout))

	members, err := s.client.SMembers(s.ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get daily drops: %w", err)
	}

	drops := make(map[string]bool, len(members))
	for _, m := range members {
		drops[m] = true
	}
	return drops, nil
}

func (s *RedisService) SaveRevealRecord(record *models.RevealRecord) error {
	recordKey := fmt.Sprintf(KeyReveal, record.SessionID)

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal reveal record: %w", err)
	}

	if err := s.client.Set(s.ctx, recordKey, data, TTLReveal).Err(); err != nil {
		return fmt.Errorf("failed to save reveal record: %w", err)
	}

	historyKey := fmt.Sprintf(KeyRevealHistory, record.UserID)
	if err := s.client.ZAdd(s.ctx, historyKey, redis.Z{
		Score:  float64(record.CreatedAt),
		Member: record.SessionID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to add to reveal history: %w", err)
	}

	s.client.ZRemRangeByRank(s.ctx, historyKey, 0, -(MaxRevealsKept + 1))

	return nil
}

func (s *RedisService) GetRevealHistory(userID int64, limit int64) ([]*models.RevealRecord, error) {
	if limit <= 0 || limit > MaxRevealsKept {
		limit = 50
	}

	historyKey := fmt.Sprintf(KeyRevealHistory, userID)

	ids, err := s.client.ZRevRange(s.ctx, historyKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get reveal history: %w", err)
	}

	var records []*models.RevealRecord
	for _, id := range ids {
		data, err := s.client.Get(s.ctx, fmt.Sprintf(KeyReveal, id)).Result()
		if err != nil {
			continue
		}

		var record models.RevealRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			continue
		}

		records = append(records, &record)
	}

	return records, nil
}

func (s *RedisService) CheckRateLimit(userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := s.client.Incr(s.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}

	if count == 1 {
		s.client.Expire(s.ctx, key, window)
	}

	return count <= int64(limit), nil
}
