// vapid.go: voluntary application server identification for Web Push
// (RFC 8292). Push services require a signed JWT proving the sender owns
// the VAPID key pair the subscription was created against.
package webpush

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"fmt"
	"math/big"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const vapidTokenTTL = 12 * time.Hour

// vapidSigner issues short-lived VAPID authorization headers, caching one
// token per push-service origin until shortly before expiry.
type vapidSigner struct {
	subject    string
	publicKey  string // base64url, sent verbatim in the k= parameter
	privateKey *ecdsa.PrivateKey

	mu     sync.Mutex
	tokens map[string]cachedToken
}

type cachedToken struct {
	header  string
	expires time.Time
}

// newVAPIDSigner parses the configured base64url private scalar into an
// ECDSA P-256 key.
func newVAPIDSigner(subject, publicKey, privateKey string) (*vapidSigner, error) {
	raw, err := decodeKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("decoding VAPID private key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("VAPID private key must be 32 bytes, got %d", len(raw))
	}

	d := new(big.Int).SetBytes(raw)
	x, y := elliptic.P256().ScalarBaseMult(raw)
	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y},
		D:         d,
	}

	return &vapidSigner{
		subject:    subject,
		publicKey:  publicKey,
		privateKey: key,
		tokens:     make(map[string]cachedToken),
	}, nil
}

// authorizationHeader returns the Authorization header value for the push
// service hosting the given endpoint.
func (v *vapidSigner) authorizationHeader(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing push endpoint: %w", err)
	}
	origin := u.Scheme + "://" + u.Host

	v.mu.Lock()
	defer v.mu.Unlock()

	if cached, ok := v.tokens[origin]; ok && time.Until(cached.expires) > time.Minute {
		return cached.header, nil
	}

	expires := time.Now().Add(vapidTokenTTL)
	claims := jwt.MapClaims{
		"aud": origin,
		"exp": expires.Unix(),
	}
	if v.subject != "" {
		claims["sub"] = v.subject
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(v.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing VAPID token: %w", err)
	}

	header := fmt.Sprintf("vapid t=%s, k=%s", token, v.publicKey)
	v.tokens[origin] = cachedToken{header: header, expires: expires}
	return header, nil
}
