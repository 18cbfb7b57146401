package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"lifestyle-api/internal/models"
)

const (
	defaultFeedLimit = 20
	maxFeedLimit     = 50
)

type FeedPage struct {
	Profiles   []models.Profile `json:"profiles"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

// DiscoverService pages through profiles in source order. There is no
// ranking or matching.
type DiscoverService struct {
	profiles ProfileSource
	logger   *zap.Logger
}

func NewDiscoverService(profiles ProfileSource, logger *zap.Logger) *DiscoverService {
	return &DiscoverService{profiles: profiles, logger: logger}
}

func (s *DiscoverService) Feed(ctx context.Context, viewerID, cursor string, limit int) (*FeedPage, error) {
	offset, err := decodeCursor(cursor)
	if err != nil {
		return nil, newValidationError("cursor", "Invalid cursor")
	}
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}

	profiles, err := s.profiles.ListProfiles(ctx, viewerID, offset, limit+1)
	if err != nil {
		s.logger.Error("Failed to load discover feed", zap.String("viewer_id", viewerID), zap.Error(err))
		return nil, fmt.Errorf("%w: profile source: %v", ErrInternal, err)
	}

	page := &FeedPage{Profiles: profiles}
	if len(profiles) > limit {
		page.Profiles = profiles[:limit]
		page.NextCursor = encodeCursor(offset + limit)
	}
	if page.Profiles == nil {
		page.Profiles = []models.Profile{}
	}
	return page, nil
}

// RecordView is not built yet; callers get an explicit NotImplemented
func (s *DiscoverService) RecordView(_ context.Context, viewerID, profileID string) error {
	s.logger.Debug("Profile view not recorded",
		zap.String("viewer_id", viewerID),
		zap.String("profile_id", profileID))
	return &NotImplementedError{Message: "Profile view tracking is not implemented"}
}

func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	offset, err := strconv.Atoi(string(raw))
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("bad cursor offset %q", raw)
	}
	return offset, nil
}
