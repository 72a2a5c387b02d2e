package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ballotguard/internal/otp/models"
	id "ballotguard/pkg/domain"
	"ballotguard/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix = "otp:session:"
	maxTxRetries     = 8
)

// RedisStore keeps one JSON-encoded session per key with a TTL. Updates are
// optimistic transactions: WATCH the key, read, apply, write in MULTI/EXEC,
// and retry when another client changed the key in between. Two concurrent
// verifications of the same code therefore cannot both observe "issued".
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(voterID id.VoterID, scope id.Scope) string {
	return sessionKeyPrefix + models.Key(voterID, scope)
}

func (s *RedisStore) Save(ctx context.Context, session *models.Session, retention time.Duration) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode otp session: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(session.VoterID, session.Scope), data, retention).Err(); err != nil {
		return fmt.Errorf("save otp session: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, voterID id.VoterID, scope id.Scope) (*models.Session, error) {
	raw, err := s.client.Get(ctx, redisKey(voterID, scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load otp session: %w", err)
	}
	return decode(raw)
}

func (s *RedisStore) Update(ctx context.Context, voterID id.VoterID, scope id.Scope, fn func(*models.Session) error) (*models.Session, error) {
	key := redisKey(voterID, scope)
	var (
		out   *models.Session
		fnErr error
	)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		session, err := decode(raw)
		if err != nil {
			return err
		}
		fnErr = fn(session)
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("encode otp session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, redis.KeepTTL)
			return nil
		})
		out = session
		return err
	}

	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("update otp session: %w", err)
		}
		return out, fnErr
	}
	return nil, sentinel.ErrConflict
}

func decode(raw []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode otp session: %w", err)
	}
	return &session, nil
}
