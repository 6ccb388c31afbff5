// Package captcha issues and verifies short-lived, single-use text
// challenges bound to the requester's (ip, user agent) identity.
package captcha

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegis-admin/aegis/internal/shared"
)

// Characters avoid ambiguous glyphs (0/O, 1/l/I) so users can read the image.
const charset = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ"

const textLength = 4

// Service stores challenges in the cache store and renders them to images.
type Service struct {
	client   *redis.Client
	renderer Renderer
	ttl      time.Duration
}

// NewService constructs a Service. A nil renderer falls back to the inline
// SVG renderer.
func NewService(client *redis.Client, renderer Renderer, ttl time.Duration) *Service {
	if renderer == nil {
		renderer = SVGRenderer{}
	}
	if ttl <= 0 {
		ttl = 120 * time.Second
	}
	return &Service{client: client, renderer: renderer, ttl: ttl}
}

// Issue generates a challenge for the requester, stores the expected text
// under the requester's key, and returns only the rendered image. The text
// never leaves the cache store.
func (s *Service) Issue(ctx context.Context, ip, userAgent string) (string, error) {
	text, err := randomText(textLength)
	if err != nil {
		return "", fmt.Errorf("captcha: generate: %w", err)
	}
	key := shared.CaptchaKey(ip, userAgent)
	if err := s.client.Set(ctx, key, text, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("captcha: store: %w", err)
	}
	image, err := s.renderer.Render(text)
	if err != nil {
		return "", fmt.Errorf("captcha: render: %w", err)
	}
	return image, nil
}

// Verify compares the submission against the stored text, case-insensitive.
// A successful match consumes the challenge; a mismatch or an absent
// challenge leaves the stored value untouched so a typo does not burn a
// legitimate challenge.
func (s *Service) Verify(ctx context.Context, ip, userAgent, submitted string) (bool, error) {
	key := shared.CaptchaKey(ip, userAgent)
	stored, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("captcha: lookup: %w", err)
	}
	if !strings.EqualFold(stored, submitted) {
		return false, nil
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("captcha: consume: %w", err)
	}
	return true, nil
}

func randomText(n int) (string, error) {
	max := big.NewInt(int64(len(charset)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(charset[idx.Int64()])
	}
	return b.String(), nil
}
