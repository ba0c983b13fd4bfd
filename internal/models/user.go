package models

import "time"

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash []byte
	FullName     *string
	Bio          *string
	AvatarURL    *string
	IsActive     bool
	IsVerified   bool
	IsSuperuser  bool
	LastLoginAt  *time.Time
	LoginCount   int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return u.Username
}

type Session struct {
	ID               string
	UserID           int64
	RefreshTokenHash []byte
	UserAgent        string
	IP               string
	CreatedAt        time.Time
	LastSeenAt       time.Time
	ExpiresAt        time.Time
}
