package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/rafflywin-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure FollowServiceImpl implements FollowService
var _ FollowService = (*FollowServiceImpl)(nil)

// FollowServiceImpl records who follows whom. Followers of a creator are told
// about each raffle the creator publishes.
type FollowServiceImpl struct {
	userRepo repositories.UserRepository
}

// NewFollowService creates a new FollowServiceImpl
func NewFollowService(userRepo repositories.UserRepository) *FollowServiceImpl {
	return &FollowServiceImpl{userRepo: userRepo}
}

// Follow makes followerID follow targetID. Following twice is a no-op.
func (s *FollowServiceImpl) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	if followerID == targetID {
		return fmt.Errorf("%w: you cannot follow yourself", ErrValidation)
	}
	if err := s.userRepo.Follow(ctx, followerID, targetID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("%w: user %s", ErrNotFound, targetID.Hex())
		}
		slog.Error("Failed to follow user", "error", err, "followerId", followerID.Hex(), "targetId", targetID.Hex())
		return fmt.Errorf("failed to follow user: %w", err)
	}
	slog.Info("User followed", "followerId", followerID.Hex(), "targetId", targetID.Hex())
	return nil
}

// Unfollow removes the relation. Unfollowing someone not followed is a no-op.
func (s *FollowServiceImpl) Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	if err := s.userRepo.Unfollow(ctx, followerID, targetID); err != nil {
		slog.Error("Failed to unfollow user", "error", err, "followerId", followerID.Hex(), "targetId", targetID.Hex())
		return fmt.Errorf("failed to unfollow user: %w", err)
	}
	return nil
}
