package service

import "github.com/polyblog/backend/internal/model"

const adminRoleName = "admin"

// HasPermission reports whether the user's role grants perm. The admin role
// short-circuits to true regardless of its permission list.
func HasPermission(u *model.User, perm string) bool {
	if u == nil || u.Role == nil || !u.Role.IsActive {
		return false
	}
	if u.Role.Name == adminRoleName {
		return true
	}
	for _, p := range u.Role.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

func IsAdmin(u *model.User) bool {
	return u != nil && u.Role != nil && u.Role.Name == adminRoleName
}

// DisplayRole returns the role label, falling back when no role is assigned.
func DisplayRole(u *model.User) string {
	if u == nil || u.Role == nil {
		return "user"
	}
	return u.Role.Name
}

// DisplayRank returns the rank label, falling back when no rank is assigned.
func DisplayRank(u *model.User) string {
	if u == nil || u.Rank == nil {
		return "newbie"
	}
	return u.Rank.Name
}

// Permissions returns the effective permission list, never nil.
func Permissions(u *model.User) []string {
	if u == nil || u.Role == nil {
		return []string{}
	}
	if u.Role.Permissions == nil {
		return []string{}
	}
	return u.Role.Permissions
}
