package service

import (
	"context"
	"fmt"
	"time"

	"producttrends/crawler/internal/domain"
	"producttrends/crawler/internal/domain/task"
	"producttrends/crawler/internal/queue"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// claimIdle is how long a failed URL must sit unacknowledged before a new
// replay takes it over from a consumer that died.
const claimIdle = time.Minute

// Replay drains the failed URLs recorded for this site and ingests them again.
// Messages are acknowledged only after the run commits; URLs that fail again
// are recorded anew. Failed URLs of other sites go back on the stream.
func (s *Service) Replay(ctx context.Context, runID string) (domain.Summary, error) {
	if s.queue == nil {
		return domain.Summary{}, ErrReplayUnavailable
	}
	logger := log.WithField("run", runID)
	stream := s.queue.StreamName((&task.FailedURLTask{}).TaskType())
	consumer := "replay-" + runID

	messages, err := s.drain(ctx, consumer, stream)
	if err != nil {
		return domain.Summary{}, err
	}

	urls := domain.NewLinkSet()
	var (
		mine   []string
		others []*task.FailedURLTask
	)
	for _, msg := range messages {
		failed, err := queue.DecodeFailedURL(msg)
		if err != nil {
			logger.Warnf("⚠️ Dropping unreadable message %s: %v", msg.ID, err)
			s.ack(ctx, stream, msg.ID)
			continue
		}
		if failed.Site != s.siteName {
			others = append(others, failed)
			s.ack(ctx, stream, msg.ID)
			continue
		}
		urls.Add(failed.URL)
		mine = append(mine, msg.ID)
	}

	for _, failed := range others {
		if _, err := s.queue.AddTask(ctx, failed); err != nil {
			logger.Errorf("❌ Failed to requeue %s: %v", failed.URL, err)
		}
	}

	logger.Infof("🔄 Replaying %d failed URLs (%d messages)", urls.Len(), len(mine))
	summary, err := s.Ingest(ctx, runID, urls.Links())
	if err != nil {
		return summary, err
	}

	for _, id := range mine {
		s.ack(ctx, stream, id)
	}
	return summary, nil
}

func (s *Service) drain(ctx context.Context, consumer, stream string) ([]redis.XMessage, error) {
	var messages []redis.XMessage
	for {
		claimed, err := s.queue.AutoClaim(ctx, consumer, stream, claimIdle)
		if err != nil {
			return nil, err
		}
		if len(claimed) == 0 {
			break
		}
		messages = append(messages, claimed...)
	}

	for {
		msg, err := s.queue.GetTask(ctx, consumer, stream, s.opts.ReplayBlock)
		if err != nil {
			return nil, fmt.Errorf("failed to read failed URLs: %w", err)
		}
		if msg == nil {
			return messages, nil
		}
		messages = append(messages, *msg)
	}
}

func (s *Service) ack(ctx context.Context, stream, id string) {
	if err := s.queue.AckTask(ctx, stream, id); err != nil {
		log.Errorf("❌ Failed to ack message %s: %v", id, err)
	}
}
