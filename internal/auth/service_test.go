package auth_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-admin/aegis/internal/auth"
	"github.com/aegis-admin/aegis/internal/shared"
	"github.com/aegis-admin/aegis/internal/users"
)

type stubUserRepo struct {
	byName map[string]*users.User
	byID   map[int64]*users.User
}

func (s *stubUserRepo) FindByUserName(ctx context.Context, userName string) (*users.User, error) {
	if user, ok := s.byName[userName]; ok {
		return user, nil
	}
	return nil, users.ErrNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id int64) (*users.User, error) {
	if user, ok := s.byID[id]; ok {
		return user, nil
	}
	return nil, users.ErrNotFound
}

type stubCaptcha struct {
	ok    bool
	calls int
}

func (s *stubCaptcha) Verify(ctx context.Context, ip, userAgent, submitted string) (bool, error) {
	s.calls++
	return s.ok, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLoginFixture(t *testing.T) (*auth.Service, *stubCaptcha, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	repo := &stubUserRepo{byName: map[string]*users.User{
		"alice": {ID: 7, UserName: "alice", Password: string(hashed)},
	}}
	captcha := &stubCaptcha{ok: true}
	svc := auth.NewService(discardLogger(), users.NewService(repo, "admin"), captcha, newTokenManager(t, time.Hour), client)
	return svc, captcha, mr
}

func loginInput() auth.LoginInput {
	return auth.LoginInput{
		UserName:  "alice",
		Password:  "correct horse",
		Captcha:   "ab3d",
		IP:        "10.0.0.1",
		UserAgent: "agent-a",
	}
}

func TestLoginIssuesTokenAndMirror(t *testing.T) {
	svc, _, mr := newLoginFixture(t)

	token, err := svc.Login(context.Background(), loginInput())
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatalf("expected a token")
	}

	mirror, err := mr.Get(shared.SSOKey(7))
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if mirror != token {
		t.Fatalf("mirror does not hold the issued token")
	}
	if ttl := mr.TTL(shared.SSOKey(7)); ttl != time.Hour {
		t.Fatalf("expected session-lifetime ttl on mirror, got %v", ttl)
	}
}

func TestLoginSecondSessionOverwritesMirror(t *testing.T) {
	svc, _, mr := newLoginFixture(t)
	ctx := context.Background()

	first, err := svc.Login(ctx, loginInput())
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := svc.Login(ctx, loginInput())
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	mirror, err := mr.Get(shared.SSOKey(7))
	if err != nil {
		t.Fatalf("mirror: %v", err)
	}
	if mirror != second {
		t.Fatalf("expected mirror to hold the second token")
	}
	if mirror == first {
		t.Fatalf("expected first session to be displaced")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, mr := newLoginFixture(t)

	in := loginInput()
	in.Password = "wrong"
	_, err := svc.Login(context.Background(), in)
	if !shared.IsKind(err, shared.KindPasswordInvalid) {
		t.Fatalf("expected PasswordInvalid, got %v", err)
	}
	if mr.Exists(shared.SSOKey(7)) {
		t.Fatalf("expected no mirror key after failed login")
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _ := newLoginFixture(t)

	in := loginInput()
	in.UserName = "bob"
	_, err := svc.Login(context.Background(), in)
	if !shared.IsKind(err, shared.KindUserNameInvalid) {
		t.Fatalf("expected UserNameInvalid, got %v", err)
	}
}

func TestLoginBadCaptchaShortCircuits(t *testing.T) {
	svc, captcha, _ := newLoginFixture(t)
	captcha.ok = false

	_, err := svc.Login(context.Background(), loginInput())
	if !shared.IsKind(err, shared.KindCaptchaInvalid) {
		t.Fatalf("expected CaptchaInvalid, got %v", err)
	}
	if captcha.calls != 1 {
		t.Fatalf("expected exactly one captcha check")
	}
}

func TestLogoutBlacklistsToken(t *testing.T) {
	svc, _, mr := newLoginFixture(t)
	ctx := context.Background()

	token, err := svc.Login(ctx, loginInput())
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if !mr.Exists(shared.BlacklistKey(token)) {
		t.Fatalf("expected token on the blacklist")
	}
	if ttl := mr.TTL(shared.BlacklistKey(token)); ttl != time.Hour {
		t.Fatalf("expected session-lifetime ttl on blacklist entry, got %v", ttl)
	}

	// Idempotent: a repeat only refreshes the TTL.
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("repeat logout: %v", err)
	}
}
