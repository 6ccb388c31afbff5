package captcha

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Renderer turns challenge text into an inline-encodable image payload.
// Production deployments swap in a richer renderer; the verification flow
// never depends on how the image looks.
type Renderer interface {
	Render(text string) (string, error)
}

// SVGRenderer draws the challenge as a minimal SVG data URI.
type SVGRenderer struct{}

// Render implements Renderer.
func (SVGRenderer) Render(text string) (string, error) {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="120" height="40" viewBox="0 0 120 40">`)
	b.WriteString(`<rect width="120" height="40" fill="#f0f0f0"/>`)
	for i, r := range text {
		x := 15 + i*26
		rot := (i%2)*8 - 4
		fmt.Fprintf(&b, `<text x="%d" y="28" font-size="24" font-family="monospace" transform="rotate(%d %d 28)">%s</text>`,
			x, rot, x, string(r))
	}
	b.WriteString(`</svg>`)
	encoded := base64.StdEncoding.EncodeToString([]byte(b.String()))
	return "data:image/svg+xml;base64," + encoded, nil
}
