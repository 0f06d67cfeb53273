package model

import "time"

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Language string `json:"language,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendVerificationRequest struct {
	Email    string `json:"email"`
	Language string `json:"language,omitempty"`
}

type PasswordResetRequest struct {
	Email    string `json:"email"`
	Language string `json:"language,omitempty"`
}

type PasswordResetConfirmRequest struct {
	Email       string `json:"email"`
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// UserResponse is the public projection of a User.
type UserResponse struct {
	ID            int64      `json:"id"`
	Username      string     `json:"username"`
	Email         string     `json:"email"`
	FullName      string     `json:"fullName,omitempty"`
	Bio           string     `json:"bio,omitempty"`
	Role          string     `json:"role"`
	Rank          string     `json:"rank"`
	RankIcon      string     `json:"rankIcon,omitempty"`
	Permissions   []string   `json:"permissions"`
	TotalComments int        `json:"totalComments"`
	TotalLikes    int        `json:"totalLikesReceived"`
	EmailVerified bool       `json:"emailVerified"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type AuthResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message"`
}

type RoleResponse struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description,omitempty"`
	Color       string   `json:"color,omitempty"`
	Permissions []string `json:"permissions"`
	Level       int      `json:"level"`
}

type RankResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	Color       string `json:"color,omitempty"`
	MinComments int    `json:"minComments"`
	MinLikes    int    `json:"minLikes"`
	Level       int    `json:"level"`
}
