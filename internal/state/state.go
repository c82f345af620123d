package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// StateManager remembers how far discovery got through a seed file so an
// interrupted run resumes after the last completed listing.
type StateManager interface {
	GetLastCompletedListing(ctx context.Context, linksFile string) (int, error)
	SetLastCompletedListing(ctx context.Context, linksFile string, index int) error
	Reset(ctx context.Context, linksFile string) error
}

type redisStateManager struct {
	redisClient *redis.Client
	keyPrefix   string
}

func NewRedisStateManager(redisClient *redis.Client) StateManager {
	return &redisStateManager{
		redisClient: redisClient,
		keyPrefix:   "crawler:progress:listing:",
	}
}

// GetLastCompletedListing returns the 1-based index of the last finished
// listing, or 0 when nothing was recorded.
func (s *redisStateManager) GetLastCompletedListing(ctx context.Context, linksFile string) (int, error) {
	val, err := s.redisClient.Get(ctx, s.keyPrefix+linksFile).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get progress for %s: %w", linksFile, err)
	}

	index, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse progress for %s: %w", linksFile, err)
	}
	return index, nil
}

func (s *redisStateManager) SetLastCompletedListing(ctx context.Context, linksFile string, index int) error {
	if err := s.redisClient.Set(ctx, s.keyPrefix+linksFile, index, 0).Err(); err != nil {
		return fmt.Errorf("failed to set progress for %s: %w", linksFile, err)
	}
	return nil
}

func (s *redisStateManager) Reset(ctx context.Context, linksFile string) error {
	if err := s.redisClient.Del(ctx, s.keyPrefix+linksFile).Err(); err != nil {
		return fmt.Errorf("failed to reset progress for %s: %w", linksFile, err)
	}
	return nil
}

// NopStateManager records nothing; every run starts from the first listing.
type NopStateManager struct{}

func (NopStateManager) GetLastCompletedListing(context.Context, string) (int, error) { return 0, nil }
func (NopStateManager) SetLastCompletedListing(context.Context, string, int) error  { return nil }
func (NopStateManager) Reset(context.Context, string) error                         { return nil }
