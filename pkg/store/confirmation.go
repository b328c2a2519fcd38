package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrCodeInvalid = errors.New("invalid confirmation code")
	ErrCodeExpired = errors.New("confirmation code expired")
)

const (
	defaultConfirmationTTL = 24 * time.Hour
	confirmationCodeLength = 6
	maxVerifyAttempts      = 10
)

// RedisConfirmationStore keeps one bcrypt-hashed confirmation code per user
// in Redis. Issuing replaces any previous code; verifying a valid code does
// not consume it, so sign-in stays idempotent until the TTL runs out.
type RedisConfirmationStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

type confirmationRecord struct {
	UserID    string    `json:"userId"`
	CodeHash  string    `json:"codeHash"`
	ExpiresAt time.Time `json:"expiresAt"`
	Attempts  int       `json:"attempts"`
}

// NewRedisConfirmationStore connects to Redis. ttl <= 0 selects the default.
func NewRedisConfirmationStore(addr, password string, ttl time.Duration) (*RedisConfirmationStore, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("confirmation redis addr is required")
	}
	if ttl <= 0 {
		ttl = defaultConfirmationTTL
	}
	return &RedisConfirmationStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		keyPrefix: "reviewbase:auth:confirm",
		ttl:       ttl,
	}, nil
}

// Issue generates a fresh numeric code for the user, replacing any earlier
// one, and returns the plaintext code for delivery.
func (s *RedisConfirmationStore) Issue(userID string) (string, error) {
	if s == nil {
		return "", errors.New("confirmation store not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("user id is required")
	}
	code, err := generateNumericCode(confirmationCodeLength)
	if err != nil {
		return "", fmt.Errorf("generate confirmation code: %w", err)
	}
	codeHash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash confirmation code: %w", err)
	}
	record := confirmationRecord{
		UserID:    userID,
		CodeHash:  string(codeHash),
		ExpiresAt: time.Now().UTC().Add(s.ttl),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("marshal confirmation record: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.client.Set(ctx, s.key(userID), raw, s.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the code against the stored hash. Mismatches count against
// an attempt cap; hitting the cap retires the code.
func (s *RedisConfirmationStore) Verify(userID, code string) error {
	if s == nil {
		return errors.New("confirmation store not configured")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrCodeInvalid
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	key := s.key(userID)
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCodeInvalid
	}
	if err != nil {
		return err
	}
	var record confirmationRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return fmt.Errorf("unmarshal confirmation record: %w", err)
	}
	if time.Now().UTC().After(record.ExpiresAt) {
		_ = s.client.Del(ctx, key).Err()
		return ErrCodeExpired
	}
	if record.Attempts >= maxVerifyAttempts {
		_ = s.client.Del(ctx, key).Err()
		return ErrCodeInvalid
	}
	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		record.Attempts++
		if record.Attempts >= maxVerifyAttempts {
			_ = s.client.Del(ctx, key).Err()
		} else if updated, marshalErr := json.Marshal(record); marshalErr == nil {
			ttl, ttlErr := s.client.TTL(ctx, key).Result()
			if ttlErr == nil && ttl > 0 {
				_ = s.client.Set(ctx, key, updated, ttl).Err()
			}
		}
		return ErrCodeInvalid
	}
	return nil
}

func (s *RedisConfirmationStore) key(userID string) string {
	return fmt.Sprintf("%s:%s", s.keyPrefix, userID)
}

func generateNumericCode(length int) (string, error) {
	if length <= 0 {
		length = confirmationCodeLength
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
