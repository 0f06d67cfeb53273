package service

import (
	"context"
	"log"

	"github.com/polyblog/backend/internal/db"
	"github.com/polyblog/backend/internal/model"
)

// RankStore is the persistence surface of the rank service.
type RankStore interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetRankByID(ctx context.Context, id int64) (*model.Rank, error)
	ListActiveRanks(ctx context.Context) ([]model.Rank, error)
	AddComment(ctx context.Context, userID int64) (comments, likes int, err error)
	AddLike(ctx context.Context, userID int64) (comments, likes int, err error)
	SetRank(ctx context.Context, userID, rankID int64) error
}

// RankService bumps the activity counters and applies the promotion rule.
// Comment and post handlers call into it; it never demotes.
type RankService struct {
	store RankStore
}

func NewRankService(store RankStore) *RankService {
	return &RankService{store: store}
}

// RecordComment increments the user's comment counter and evaluates
// promotion against the new totals.
func (s *RankService) RecordComment(ctx context.Context, userID int64) (*model.PromotionResult, error) {
	comments, likes, err := s.store.AddComment(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.evaluate(ctx, userID, comments, likes)
}

// RecordLike is the counterpart of RecordComment for received likes.
func (s *RankService) RecordLike(ctx context.Context, userID int64) (*model.PromotionResult, error) {
	comments, likes, err := s.store.AddLike(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.evaluate(ctx, userID, comments, likes)
}

// CheckPromotion re-evaluates the user's rank from the stored counters
// without changing them.
func (s *RankService) CheckPromotion(ctx context.Context, userID int64) (*model.PromotionResult, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.evaluate(ctx, userID, user.TotalComments, user.TotalLikesReceived)
}

// evaluate picks the highest active rank whose thresholds are both met and
// promotes only when it is strictly above the current one, so ranks are
// monotonic and re-evaluation is idempotent.
func (s *RankService) evaluate(ctx context.Context, userID int64, comments, likes int) (*model.PromotionResult, error) {
	result := &model.PromotionResult{Comments: comments, Likes: likes}

	currentLevel := 0
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.RankID != nil {
		current, err := s.store.GetRankByID(ctx, *user.RankID)
		if err != nil && !db.IsNoRows(err) {
			return nil, err
		}
		if current != nil {
			currentLevel = current.Level
		}
	}

	ranks, err := s.store.ListActiveRanks(ctx)
	if err != nil {
		return nil, err
	}
	// Ranks arrive ordered by level descending; the first match wins.
	for i := range ranks {
		rank := &ranks[i]
		if comments >= rank.MinComments && likes >= rank.MinLikes {
			if rank.Level > currentLevel {
				if err := s.store.SetRank(ctx, userID, rank.ID); err != nil {
					return nil, err
				}
				log.Printf("[Rank] user %d promoted to %s (comments=%d likes=%d)", userID, rank.Name, comments, likes)
				result.Promoted = true
				result.NewRank = rank
			}
			break
		}
	}
	return result, nil
}
