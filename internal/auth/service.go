package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/facturio/facturio/internal/shared"
)

// ErrInvalidKey indicates the presented API key did not resolve to an active company.
var ErrInvalidKey = errors.New("invalid api key")

// Service resolves API keys to companies. Verified keys are cached in Redis
// under a digest of the raw key so the bcrypt comparison runs only on cache
// misses, and concurrent misses for the same key collapse into one lookup.
type Service struct {
	repo  Repository
	cache *redis.Client
	ttl   time.Duration
	group singleflight.Group
}

// NewService constructs an auth service.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{repo: repo, cache: cache, ttl: ttl}
}

type cachedCompany struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ResolveKey validates a raw API key of the form "<key_id>.<secret>" and
// returns the owning company.
func (s *Service) ResolveKey(ctx context.Context, rawKey string) (shared.Company, error) {
	keyID, _, ok := strings.Cut(rawKey, ".")
	if !ok || keyID == "" {
		return shared.Company{}, ErrInvalidKey
	}

	cacheKey := s.cacheKey(rawKey)
	if s.cache != nil {
		payload, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var cached cachedCompany
			if err := json.Unmarshal(payload, &cached); err == nil {
				return shared.Company{ID: cached.ID, Name: cached.Name}, nil
			}
		}
	}

	v, err, _ := s.group.Do(rawKey, func() (any, error) {
		return s.verify(ctx, keyID, rawKey)
	})
	if err != nil {
		return shared.Company{}, err
	}
	company := v.(shared.Company)

	if s.cache != nil {
		if payload, err := json.Marshal(cachedCompany{ID: company.ID, Name: company.Name}); err == nil {
			_ = s.cache.Set(ctx, cacheKey, payload, s.ttl).Err()
		}
	}

	return company, nil
}

func (s *Service) verify(ctx context.Context, keyID, rawKey string) (shared.Company, error) {
	company, err := s.repo.FindByKeyID(ctx, keyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return shared.Company{}, ErrInvalidKey
		}
		return shared.Company{}, err
	}
	if !company.IsActive {
		return shared.Company{}, ErrInvalidKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(company.APIKeyHash), []byte(rawKey)); err != nil {
		return shared.Company{}, ErrInvalidKey
	}
	return shared.Company{ID: company.ID, Name: company.Name}, nil
}

func (s *Service) cacheKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return "auth:key:" + hex.EncodeToString(sum[:])
}
