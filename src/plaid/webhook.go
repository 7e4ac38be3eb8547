package plaid

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/plaid/plaid-go/v41/plaid"
)

// KeySource fetches webhook verification keys by key id.
type KeySource interface {
	WebhookKey(ctx context.Context, kid string) (*plaid.JWKPublicKey, error)
}

// Verifier checks the Plaid-Verification header of incoming webhooks.
// See https://plaid.com/docs/api/webhooks/webhook-verification/
type Verifier struct {
	keys   KeySource
	maxAge time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]*plaid.JWKPublicKey
}

func NewVerifier(keys KeySource) *Verifier {
	return &Verifier{
		keys:   keys,
		maxAge: 5 * time.Minute,
		now:    time.Now,
		cache:  map[string]*plaid.JWKPublicKey{},
	}
}

func jwkToECDSAPublicKey(jwk *plaid.JWKPublicKey) (*ecdsa.PublicKey, error) {
	if jwk == nil || jwk.X == "" || jwk.Y == "" ||
		jwk.Kty != "EC" ||
		jwk.Crv != "P-256" {
		return nil, errors.New("invalid/unsupported JWK")
	}
	xBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}

// Verify checks the ES256 signature, the token age and the body hash.
func (v *Verifier) Verify(ctx context.Context, body []byte, tokenString string) error {
	if tokenString == "" {
		return errors.New("missing Plaid-Verification header")
	}

	parser := jwt.NewParser(
		jwt.WithLeeway(30*time.Second),
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithTimeFunc(v.now),
	)

	unverified, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return fmt.Errorf("parse unverified token: %w", err)
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return errors.New("missing kid in JWT header")
	}

	jwk, err := v.key(ctx, kid)
	if err != nil {
		return fmt.Errorf("get JWK: %w", err)
	}
	pubKey, err := jwkToECDSAPublicKey(jwk)
	if err != nil {
		return fmt.Errorf("jwk->ecdsa: %w", err)
	}

	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return pubKey, nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("invalid token: %w", err)
	}

	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return errors.New("missing iat")
	}
	if v.now().Sub(iat.Time) > v.maxAge {
		return errors.New("token too old (>5m)")
	}

	wantHash, ok := claims["request_body_sha256"].(string)
	if !ok || wantHash == "" {
		return errors.New("missing request_body_sha256")
	}
	sum := sha256.Sum256(body)
	gotHex := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(gotHex), []byte(strings.ToLower(wantHash))) != 1 {
		return errors.New("body hash mismatch")
	}
	return nil
}

func (v *Verifier) key(ctx context.Context, kid string) (*plaid.JWKPublicKey, error) {
	v.mu.Lock()
	key, ok := v.cache[kid]
	v.mu.Unlock()
	if ok {
		return key, nil
	}

	key, err := v.keys.WebhookKey(ctx, kid)
	if err != nil {
		return nil, err
	}
	if key.Kid == kid {
		v.mu.Lock()
		v.cache[kid] = key
		v.mu.Unlock()
	}
	return key, nil
}
