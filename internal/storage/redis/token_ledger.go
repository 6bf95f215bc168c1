package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "checkout:captured-token:"
	defaultTTL       = 7 * 24 * time.Hour
)

// TokenLedger records payment tokens that produced a captured charge, keyed by
// a SHA-256 digest so raw tokens never reach Redis.
type TokenLedger struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewTokenLedger(client *redis.Client, ttl time.Duration) *TokenLedger {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &TokenLedger{
		client: client,
		prefix: defaultKeyPrefix,
		ttl:    ttl,
	}
}

func (l *TokenLedger) CapturedCharge(ctx context.Context, token string) (string, bool, error) {
	chargeID, err := l.client.Get(ctx, l.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("lookup captured token: %w", err)
	}
	return chargeID, true, nil
}

// RecordCapture keeps the first charge id recorded for a token.
func (l *TokenLedger) RecordCapture(ctx context.Context, token, chargeID string) error {
	if err := l.client.SetNX(ctx, l.key(token), chargeID, l.ttl).Err(); err != nil {
		return fmt.Errorf("record captured token: %w", err)
	}
	return nil
}

func (l *TokenLedger) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return l.prefix + hex.EncodeToString(sum[:])
}
