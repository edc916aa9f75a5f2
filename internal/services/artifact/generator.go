package artifact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

// ErrGenerationFailed means the identifier could not be encoded at the chosen
// density / error-correction level. Generation has no side effects, so callers
// may retry freely (with a different identifier).
var ErrGenerationFailed = errors.New("artifact generation failed")

const qrImageSize = 512

// Generator renders the scannable identity artifact for a unit: a QR code
// whose payload is a scan-target URL carrying the unit's opaque token plus
// the instance mark.
// Protocol: {DOMAIN}/{TOKEN}{MARK}, e.g. PRDL.ONE/7F3A...C1F1
type Generator struct {
	domain string
	mark   string
	level  qrcode.RecoveryLevel
}

// NewGenerator creates a generator for one instance's domain and mark
func NewGenerator(domain, mark string) *Generator {
	return &Generator{
		domain: strings.ToUpper(domain),
		mark:   strings.ToUpper(mark),
		level:  qrcode.Medium,
	}
}

// Payload returns the string encoded into the QR for a given token.
// Uppercase throughout: QR alphanumeric mode packs uppercase tighter.
func (g *Generator) Payload(token string) string {
	compact := strings.ToUpper(strings.ReplaceAll(token, "-", ""))
	return fmt.Sprintf("%s/%s%s", g.domain, compact, g.mark)
}

// Generate renders the identity artifact PNG for an opaque identifier.
// Deterministic for identical input; no side effects.
func (g *Generator) Generate(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrGenerationFailed)
	}

	png, err := qrcode.Encode(g.Payload(token), g.level, qrImageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	return png, nil
}
