package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/takuyakubo/knowledge-system/internal/config"
	"github.com/takuyakubo/knowledge-system/internal/ids"
	"github.com/takuyakubo/knowledge-system/internal/models"
	"github.com/takuyakubo/knowledge-system/internal/repository"
	"github.com/takuyakubo/knowledge-system/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("account is inactive")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

type AuthService struct {
	users    *repository.UserRepository
	sessions *repository.SessionRepository
	tokens   *repository.AuthTokenRepository
	cfg      *config.AppConfig
	log      zerolog.Logger
}

func NewAuthService(
	users *repository.UserRepository,
	sessions *repository.SessionRepository,
	tokens *repository.AuthTokenRepository,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	Username    string
	DisplayName string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if input.Email == "" || input.Password == "" {
		return models.User{}, fmt.Errorf("email and password required")
	}
	if len(input.Password) < 8 {
		return models.User{}, ErrWeakPassword
	}

	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = s.deriveUsername(ctx, input.Email)
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		Email:        input.Email,
		Username:     username,
		PasswordHash: passwordHash,
	}
	if name := strings.TrimSpace(input.DisplayName); name != "" {
		user.FullName = &name
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return models.User{}, err
	}

	if err := s.issueVerification(ctx, user); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("issue verification token failed")
	}

	return user, nil
}

// deriveUsername takes the email local part and appends a numeric suffix
// until it is free.
func (s *AuthService) deriveUsername(ctx context.Context, email string) string {
	base := email
	if i := strings.Index(email, "@"); i > 0 {
		base = email[:i]
	}
	base = strings.Map(func(r rune) rune {
		if r == '.' || r == '+' {
			return '_'
		}
		return r
	}, base)

	candidate := base
	for n := 1; ; n++ {
		_, err := s.users.FindByUsername(ctx, candidate)
		if errors.Is(err, repository.ErrUserNotFound) {
			return candidate
		}
		candidate = fmt.Sprintf("%s%d", base, n)
		if n > 50 {
			return fmt.Sprintf("%s_%s", base, ids.New()[:8])
		}
	}
}

type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	User         models.User
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		return AuthResult{}, ErrInvalidCredentials
	}

	if !user.IsActive {
		return AuthResult{}, ErrUserInactive
	}

	if err := s.users.RecordLogin(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("record login failed")
	}

	return s.createSession(ctx, user, input.IP, input.UserAgent)
}

func (s *AuthService) createSession(ctx context.Context, user models.User, ip string, userAgent string) (AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		RefreshTokenHash: refreshHash,
		UserAgent:        userAgent,
		IP:               ip,
		ExpiresAt:        time.Now().Add(s.cfg.Security.RefreshTTL),
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		user.ID,
		session.ID,
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return AuthResult{}, err
	}

	if err := s.enforceSessionLimit(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("enforce session limit failed")
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.cfg.Security.JWTAccessTTL.Seconds()),
		User:         user,
	}, nil
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID int64) error {
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= s.cfg.Security.MaxSessions {
		return nil
	}

	return s.sessions.DeleteOldestSessions(ctx, userID, s.cfg.Security.MaxSessions)
}

// Refresh rotates the session identified by the presented refresh token.
// The token alone locates the session; no other client state is trusted.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	refreshHash := security.HashRefreshToken(refreshToken)
	session, err := s.sessions.FindByRefreshHash(ctx, refreshHash)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	if session.ExpiresAt.Before(time.Now()) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return AuthResult{}, ErrInvalidCredentials
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return AuthResult{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		return AuthResult{}, ErrUserInactive
	}

	newToken, newHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return AuthResult{}, err
	}

	expiresAt := time.Now().Add(s.cfg.Security.RefreshTTL)
	if err := s.sessions.Rotate(ctx, session.ID, newHash, expiresAt); err != nil {
		return AuthResult{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTAccessSecret,
		user.ID,
		session.ID,
		s.cfg.Security.JWTAccessTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{
		AccessToken:  accessToken,
		RefreshToken: newToken,
		ExpiresIn:    int64(s.cfg.Security.JWTAccessTTL.Seconds()),
		User:         user,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	err := s.sessions.DeleteByID(ctx, sessionID)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return nil
	}
	return err
}

type ProfileInput struct {
	Username  *string
	FullName  *string
	Bio       *string
	AvatarURL *string
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, input ProfileInput) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}

	if input.Username != nil && strings.TrimSpace(*input.Username) != "" {
		user.Username = strings.TrimSpace(*input.Username)
	}
	if input.FullName != nil {
		user.FullName = input.FullName
	}
	if input.Bio != nil {
		user.Bio = input.Bio
	}
	if input.AvatarURL != nil {
		user.AvatarURL = input.AvatarURL
	}

	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID int64, sessionID string, current string, next string) error {
	if len(next) < 8 {
		return ErrWeakPassword
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrInvalidCredentials
	}

	passwordHash, err := security.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return err
	}

	// Other devices must log in again with the new password.
	if err := s.sessions.DeleteByUserExcept(ctx, userID, sessionID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("revoke other sessions failed")
	}
	return nil
}

// ForgotPassword never reveals whether the email is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}

	token, err := security.GenerateOneShotToken()
	if err != nil {
		return err
	}
	if err := s.tokens.Set(ctx, repository.TokenPurposeReset, token, user.ID, s.cfg.Security.ResetTokenTTL); err != nil {
		return err
	}

	// No mailer is wired up; the token is surfaced through the logs for
	// operators to relay.
	s.log.Info().Int64("user_id", user.ID).Str("reset_token", token).Msg("password reset requested")
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, next string) error {
	if len(next) < 8 {
		return ErrWeakPassword
	}

	userID, err := s.tokens.Consume(ctx, repository.TokenPurposeReset, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	passwordHash, err := security.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return err
	}

	return s.sessions.DeleteByUser(ctx, userID)
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.tokens.Consume(ctx, repository.TokenPurposeVerify, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}
	return s.users.SetVerified(ctx, userID)
}

func (s *AuthService) issueVerification(ctx context.Context, user models.User) error {
	token, err := security.GenerateOneShotToken()
	if err != nil {
		return err
	}
	if err := s.tokens.Set(ctx, repository.TokenPurposeVerify, token, user.ID, s.cfg.Security.VerifyTokenTTL); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", user.ID).Str("verify_token", token).Msg("verification token issued")
	return nil
}
