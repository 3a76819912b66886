// Package token mints and verifies the signed table tokens embedded in QR codes.
package token

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"mesa/internal/domain"
)

// Version is the payload format version.
const Version = "1.0"

const (
	DefaultSignatureLength = 16
	DefaultPermanentTTL    = 365 * 24 * time.Hour
	DefaultTemporaryTTL    = 24 * time.Hour
	nonceBytes             = 8
)

// wire is the outer transport encoding. Strict rejects non-zero trailing bits so
// distinct strings never decode to the same payload.
var wire = base64.RawURLEncoding.Strict()

// Policy selects the lifetime of an issued token.
type Policy int

const (
	Permanent Policy = iota
	Temporary
)

func (p Policy) String() string {
	if p == Temporary {
		return "temporary"
	}
	return "permanent"
}

// Claims are the signed fields of a table token. Field order is the
// serialization order.
type Claims struct {
	TableCode string    `json:"table_code"`
	TableID   int64     `json:"table_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Nonce     string    `json:"nonce"`
	Version   string    `json:"version"`
}

type payload struct {
	Claims
	Sig string `json:"sig"`
}

// Codec issues and verifies table tokens with a process-wide secret.
type Codec struct {
	secret       []byte
	sigLen       int
	permanentTTL time.Duration
	temporaryTTL time.Duration
	now          func() time.Time
	random       io.Reader
}

// Option configures a Codec.
type Option func(*Codec)

// WithSignatureLength truncates the base64 signature to n characters.
// Zero keeps the full digest.
func WithSignatureLength(n int) Option {
	return func(c *Codec) {
		c.sigLen = n
	}
}

// WithTTLs overrides the permanent and temporary token lifetimes.
func WithTTLs(permanent, temporary time.Duration) Option {
	return func(c *Codec) {
		if permanent > 0 {
			c.permanentTTL = permanent
		}
		if temporary > 0 {
			c.temporaryTTL = temporary
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// New creates a codec signing with secret.
func New(secret string, opts ...Option) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is empty")
	}

	c := &Codec{
		secret:       []byte(secret),
		sigLen:       DefaultSignatureLength,
		permanentTTL: DefaultPermanentTTL,
		temporaryTTL: DefaultTemporaryTTL,
		now:          time.Now,
		random:       rand.Reader,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sigLen < 0 {
		return nil, fmt.Errorf("signature length must not be negative, got %d", c.sigLen)
	}
	return c, nil
}

// Issue mints a token for the table identified by code and id.
func (c *Codec) Issue(code string, id int64, policy Policy) (string, *Claims, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := io.ReadFull(c.random, nonce); err != nil {
		return "", nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := c.now().UTC()
	ttl := c.permanentTTL
	if policy == Temporary {
		ttl = c.temporaryTTL
	}

	claims := Claims{
		TableCode: code,
		TableID:   id,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Nonce:     hex.EncodeToString(nonce),
		Version:   Version,
	}

	sig, err := c.sign(&claims)
	if err != nil {
		return "", nil, err
	}

	raw, err := json.Marshal(payload{Claims: claims, Sig: sig})
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal token: %w", err)
	}

	return wire.EncodeToString(raw), &claims, nil
}

// Verify decodes token, checks its signature and expiry, and returns its claims.
func (c *Codec) Verify(token string) (*Claims, error) {
	p, err := decode(token)
	if err != nil {
		return nil, err
	}

	expected, err := c.sign(&p.Claims)
	if err != nil {
		return nil, err
	}
	if !hmac.Equal([]byte(expected), []byte(p.Sig)) {
		return nil, domain.ErrInvalidSignature
	}

	if !c.now().Before(p.ExpiresAt) {
		return nil, fmt.Errorf("%w: expired at %s", domain.ErrExpired, p.ExpiresAt.Format(time.RFC3339))
	}

	return &p.Claims, nil
}

// Inspect decodes token without checking its signature or expiry.
func Inspect(token string) (*Claims, string, error) {
	p, err := decode(token)
	if err != nil {
		return nil, "", err
	}
	return &p.Claims, p.Sig, nil
}

func decode(token string) (*payload, error) {
	raw, err := wire.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}

	// Anything that does not re-serialize byte for byte was not produced by Issue.
	canonical, err := json.Marshal(p)
	if err != nil || !bytes.Equal(canonical, raw) {
		return nil, fmt.Errorf("%w: non-canonical payload", domain.ErrMalformed)
	}
	if p.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %q", domain.ErrMalformed, p.Version)
	}

	return &p, nil
}

func (c *Codec) sign(claims *Claims) (string, error) {
	body, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("failed to marshal claims: %w", err)
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if c.sigLen > 0 && c.sigLen < len(sig) {
		sig = sig[:c.sigLen]
	}
	return sig, nil
}
