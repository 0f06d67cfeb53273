package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polyblog/backend/internal/model"
)

func seedRankUser(t *testing.T, store *fakeStore) *model.User {
	t.Helper()
	rankID := int64(1)
	user, err := store.CreateUser(context.Background(), &model.User{
		Username: "alice", Email: "a@example.com", PasswordHash: "x",
		IsActive: true, EmailVerified: true, RankID: &rankID,
	})
	require.NoError(t, err)
	return user
}

func TestRecordCommentPromotes(t *testing.T) {
	store := newFakeStore()
	svc := NewRankService(store)
	ctx := context.Background()
	user := seedRankUser(t, store)

	// regular needs 5 comments and 10 likes.
	for i := 0; i < 10; i++ {
		_, err := svc.RecordLike(ctx, user.ID)
		require.NoError(t, err)
	}
	var result *model.PromotionResult
	for i := 0; i < 5; i++ {
		var err error
		result, err = svc.RecordComment(ctx, user.ID)
		require.NoError(t, err)
		if i < 4 {
			assert.False(t, result.Promoted)
		}
	}

	require.True(t, result.Promoted)
	require.NotNil(t, result.NewRank)
	assert.Equal(t, "regular", result.NewRank.Name)
	assert.Equal(t, 5, result.Comments)
	assert.Equal(t, 10, result.Likes)
}

func TestPromotionRequiresBothThresholds(t *testing.T) {
	store := newFakeStore()
	svc := NewRankService(store)
	ctx := context.Background()
	user := seedRankUser(t, store)

	var result *model.PromotionResult
	for i := 0; i < 5; i++ {
		var err error
		result, err = svc.RecordComment(ctx, user.ID)
		require.NoError(t, err)
	}
	// 5 comments but no likes: stays newbie.
	assert.False(t, result.Promoted)
}

func TestPromotionIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewRankService(store)
	ctx := context.Background()
	user := seedRankUser(t, store)

	for i := 0; i < 10; i++ {
		_, err := svc.RecordLike(ctx, user.ID)
		require.NoError(t, err)
	}
	for i := 0; i < 5; i++ {
		_, err := svc.RecordComment(ctx, user.ID)
		require.NoError(t, err)
	}

	result, err := svc.CheckPromotion(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, result.Promoted, "re-evaluation must not promote again")
}

func TestPromotionIsMonotonic(t *testing.T) {
	store := newFakeStore()
	svc := NewRankService(store)
	ctx := context.Background()
	user := seedRankUser(t, store)

	// Hand the user the top rank, then record activity that only qualifies
	// for a lower one.
	require.NoError(t, store.SetRank(ctx, user.ID, 4))
	for i := 0; i < 10; i++ {
		_, err := svc.RecordLike(ctx, user.ID)
		require.NoError(t, err)
	}
	result, err := svc.RecordComment(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, result.Promoted)

	stored, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RankID)
	assert.Equal(t, int64(4), *stored.RankID, "ranks never go down")
}

func TestRecordCommentUnknownUser(t *testing.T) {
	svc := NewRankService(newFakeStore())
	_, err := svc.RecordComment(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPromotionSkipsToHighestQualifyingRank(t *testing.T) {
	store := newFakeStore()
	svc := NewRankService(store)
	ctx := context.Background()
	user := seedRankUser(t, store)

	// Backfilled counters qualify for trusted outright; the intermediate
	// regular rank is not a required stop.
	store.mu.Lock()
	store.users[user.ID].TotalComments = 25
	store.users[user.ID].TotalLikesReceived = 50
	store.mu.Unlock()

	result, err := svc.CheckPromotion(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, result.Promoted)
	require.NotNil(t, result.NewRank)
	assert.Equal(t, "trusted", result.NewRank.Name)
}
