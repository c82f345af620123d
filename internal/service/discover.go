package service

import (
	"context"
	"errors"
	"fmt"

	"producttrends/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
)

// Discover walks the listings in order and returns every product link found,
// deduplicated across listings. A listing that fails keeps the links gathered
// before the failure. Progress is checkpointed under progressKey so a rerun
// continues after the last completed listing.
func (s *Service) Discover(ctx context.Context, runID, progressKey string, listings []string, out LinkWriter) (*domain.LinkSet, error) {
	if s.discoverer == nil {
		return nil, errors.New("no discoverer configured")
	}
	logger := log.WithField("run", runID)
	all := domain.NewLinkSet()

	lastCompleted, err := s.stateManager.GetLastCompletedListing(ctx, progressKey)
	if err != nil {
		logger.Errorf("Failed to get discovery progress: %v", err)
		lastCompleted = 0
	}
	if lastCompleted > 0 && lastCompleted < len(listings) {
		logger.Infof("🔄 Continue from listing %d of %d", lastCompleted+1, len(listings))
	} else {
		lastCompleted = 0
	}

	for i, listing := range listings {
		if i < lastCompleted {
			continue
		}
		if err := ctx.Err(); err != nil {
			return all, err
		}

		logger.Infof("🔄 Discovering listing %d/%d: %s", i+1, len(listings), listing)
		result := s.discoverer.Discover(ctx, listing)
		if result.Err != nil {
			logger.Errorf("❌ Discovery of %s stopped after %d pages: %v", listing, result.Pages, result.Err)
		}

		links := result.Links.Links()
		if out != nil {
			if err := out.WriteBlock(listing, links); err != nil {
				return all, fmt.Errorf("failed to write links: %w", err)
			}
		}
		for _, link := range links {
			all.Add(link)
		}

		logger.Infof("✅ Completed %s: %d pages, %d links (%s)", listing, result.Pages, len(links), result.Reason)
		if err := s.stateManager.SetLastCompletedListing(ctx, progressKey, i+1); err != nil {
			logger.Errorf("Failed to save discovery progress: %v", err)
		}
	}

	if err := s.stateManager.Reset(ctx, progressKey); err != nil {
		logger.Errorf("Failed to reset discovery progress: %v", err)
	}
	logger.Infof("✅ Discovered %d unique product links from %d listings", all.Len(), len(listings))
	return all, nil
}
