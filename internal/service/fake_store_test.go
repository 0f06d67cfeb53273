package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/polyblog/backend/internal/mail"
	"github.com/polyblog/backend/internal/model"
)

// fakeStore is an in-memory stand-in for *db.Postgres with the same error
// conventions: pgx.ErrNoRows for misses, pgconn.PgError 23505 for duplicates.
type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*model.User
	roles  []*model.Role
	ranks  []*model.Rank
}

func newFakeStore() *fakeStore {
	s := &fakeStore{users: make(map[int64]*model.User)}
	s.roles = []*model.Role{
		{ID: 1, Name: "user", DisplayName: "User", Permissions: []string{"comment.create", "comment.like", "profile.edit"}, Level: 1, IsActive: true},
		{ID: 2, Name: "admin", DisplayName: "Administrator", Permissions: []string{"system.admin"}, Level: 100, IsActive: true},
	}
	s.ranks = []*model.Rank{
		{ID: 1, Name: "newbie", DisplayName: "Newcomer", MinComments: 0, MinLikes: 0, Level: 1, IsActive: true},
		{ID: 2, Name: "regular", DisplayName: "Regular", MinComments: 5, MinLikes: 10, Level: 2, IsActive: true},
		{ID: 3, Name: "trusted", DisplayName: "Trusted", MinComments: 25, MinLikes: 50, Level: 3, IsActive: true},
		{ID: 4, Name: "star", DisplayName: "Community Star", MinComments: 100, MinLikes: 200, Level: 4, IsActive: true},
	}
	return s
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func (s *fakeStore) CreateUser(_ context.Context, u *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, uniqueViolation("users_email_key")
		}
		if existing.Username == u.Username {
			return nil, uniqueViolation("users_username_key")
		}
	}
	s.nextID++
	clone := *u
	clone.ID = s.nextID
	clone.CreatedAt = time.Now()
	clone.UpdatedAt = clone.CreatedAt
	s.users[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (s *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := *u
	return &out, nil
}

func (s *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeStore) LoadRoleRank(ctx context.Context, u *model.User) error {
	if u.RoleID != nil {
		if role, err := s.GetRoleByID(ctx, *u.RoleID); err == nil {
			u.Role = role
		}
	}
	if u.RankID != nil {
		if rank, err := s.GetRankByID(ctx, *u.RankID); err == nil {
			u.Rank = rank
		}
	}
	return nil
}

func (s *fakeStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

func (s *fakeStore) GetRoleByID(_ context.Context, id int64) (*model.Role, error) {
	for _, r := range s.roles {
		if r.ID == id {
			out := *r
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeStore) GetRoleByName(_ context.Context, name string) (*model.Role, error) {
	for _, r := range s.roles {
		if r.Name == name {
			out := *r
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeStore) GetRankByID(_ context.Context, id int64) (*model.Rank, error) {
	for _, r := range s.ranks {
		if r.ID == id {
			out := *r
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeStore) GetRankByName(_ context.Context, name string) (*model.Rank, error) {
	for _, r := range s.ranks {
		if r.Name == name {
			out := *r
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *fakeStore) ListActiveRanks(_ context.Context) ([]model.Rank, error) {
	out := make([]model.Rank, 0, len(s.ranks))
	for _, r := range s.ranks {
		if r.IsActive {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Level > out[j].Level })
	return out, nil
}

func (s *fakeStore) SetVerificationChallenge(_ context.Context, userID int64, codeHash, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.VerificationCodeHash = &codeHash
	u.VerificationToken = &token
	u.VerificationExpiresAt = &expiresAt
	return nil
}

func (s *fakeStore) MarkEmailVerified(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.EmailVerified = true
	u.IsActive = true
	u.VerificationCodeHash = nil
	u.VerificationToken = nil
	u.VerificationExpiresAt = nil
	u.AccountExpiresAt = nil
	return nil
}

func (s *fakeStore) RecordFailedLogin(_ context.Context, email string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email != email {
			continue
		}
		u.FailedLoginAttempts++
		lockExpired := u.LockedUntil == nil || !u.LockedUntil.After(time.Now())
		if u.FailedLoginAttempts >= threshold && lockExpired {
			until := lockUntil
			u.LockedUntil = &until
		}
		return u.FailedLoginAttempts, u.LockedUntil, nil
	}
	return 0, nil, pgx.ErrNoRows
}

func (s *fakeStore) RecordSuccessfulLogin(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	now := time.Now()
	u.LastLoginAt = &now
	return nil
}

func (s *fakeStore) SetRefreshTokenID(_ context.Context, userID int64, tokenID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.RefreshTokenID = tokenID
	return nil
}

func (s *fakeStore) SetPasswordReset(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordResetToken = &token
	u.PasswordResetExpiresAt = &expiresAt
	return nil
}

func (s *fakeStore) ResetPassword(_ context.Context, userID int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = passwordHash
	u.PasswordResetToken = nil
	u.PasswordResetExpiresAt = nil
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	return nil
}

func (s *fakeStore) AddComment(_ context.Context, userID int64) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, 0, pgx.ErrNoRows
	}
	u.TotalComments++
	return u.TotalComments, u.TotalLikesReceived, nil
}

func (s *fakeStore) AddLike(_ context.Context, userID int64) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return 0, 0, pgx.ErrNoRows
	}
	u.TotalLikesReceived++
	return u.TotalComments, u.TotalLikesReceived, nil
}

func (s *fakeStore) SetRank(_ context.Context, userID, rankID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	u.RankID = &rankID
	return nil
}

// fakeMailer records sent messages and can be told to fail.
type fakeMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	fail     error
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *fakeMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mail.Message, len(m.messages))
	copy(out, m.messages)
	return out
}
