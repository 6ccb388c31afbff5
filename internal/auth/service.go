// Package auth owns the session lifecycle: captcha-gated login, token
// issuance with single-active-session enforcement, and revocation.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-admin/aegis/internal/shared"
	"github.com/aegis-admin/aegis/internal/users"
)

// CaptchaVerifier abstracts the challenge verification step.
type CaptchaVerifier interface {
	Verify(ctx context.Context, ip, userAgent, submitted string) (bool, error)
}

// LoginInput carries the credentials plus the requester identity the
// captcha was bound to.
type LoginInput struct {
	UserName  string
	Password  string
	Captcha   string
	IP        string
	UserAgent string
}

// Service wraps session business rules.
type Service struct {
	logger  *slog.Logger
	users   *users.Service
	captcha CaptchaVerifier
	tokens  *TokenManager
	client  *redis.Client
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, userSvc *users.Service, captcha CaptchaVerifier, tokens *TokenManager, client *redis.Client) *Service {
	return &Service{logger: logger, users: userSvc, captcha: captcha, tokens: tokens, client: client}
}

// Login authenticates credentials and issues a session token. Business
// failures come back as soft errors; callers branch on the kind. On success
// the per-user mirror key is overwritten, which is the single-active-session
// enforcement point: the previous token stays signature-valid but any guard
// that confirms against the mirror will reject it.
func (s *Service) Login(ctx context.Context, in LoginInput) (string, error) {
	ok, err := s.captcha.Verify(ctx, in.IP, in.UserAgent, in.Captcha)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", shared.Soft(shared.KindCaptchaInvalid, "Captcha is invalid")
	}

	user, err := s.users.FindByUserName(ctx, in.UserName)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return "", shared.Soft(shared.KindUserNameInvalid, "UserName is invalid")
		}
		return "", err
	}

	// bcrypt comparison is constant-time.
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.Password)); err != nil {
		return "", shared.Soft(shared.KindPasswordInvalid, "Password is invalid")
	}

	token, err := s.tokens.Generate(user.ID, user.UserName)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}

	// Last write wins; a racing login for the same user is resolved by
	// whichever SET lands last.
	if err := s.client.Set(ctx, shared.SSOKey(user.ID), token, s.tokens.ExpiresIn()).Err(); err != nil {
		return "", fmt.Errorf("auth: store session mirror: %w", err)
	}

	s.logger.Info("user logged in", slog.Int64("userId", user.ID))
	return token, nil
}

// Logout revokes the presented token by writing it to the blacklist with
// the session lifetime as TTL. Repeating the call only refreshes the TTL.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.client.Set(ctx, shared.BlacklistKey(token), "", s.tokens.ExpiresIn()).Err(); err != nil {
		return fmt.Errorf("auth: blacklist token: %w", err)
	}
	return nil
}
