package plaid

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/plaid/plaid-go/v41/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticKeys struct {
	keys  map[string]*plaid.JWKPublicKey
	calls int
}

func (s *staticKeys) WebhookKey(_ context.Context, kid string) (*plaid.JWKPublicKey, error) {
	s.calls++
	if k, ok := s.keys[kid]; ok {
		return k, nil
	}
	return nil, errors.New("unknown kid")
}

func newSigningKey(t *testing.T, kid string) (*ecdsa.PrivateKey, *staticKeys) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	jwk := &plaid.JWKPublicKey{
		Kid: kid,
		Kty: "EC",
		Crv: "P-256",
		X:   base64.RawURLEncoding.EncodeToString(priv.PublicKey.X.FillBytes(make([]byte, 32))),
		Y:   base64.RawURLEncoding.EncodeToString(priv.PublicKey.Y.FillBytes(make([]byte, 32))),
	}
	return priv, &staticKeys{keys: map[string]*plaid.JWKPublicKey{kid: jwk}}
}

func sign(t *testing.T, priv *ecdsa.PrivateKey, kid string, body []byte, iat time.Time) string {
	t.Helper()
	sum := sha256.Sum256(body)
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iat":                 iat.Unix(),
		"request_body_sha256": hex.EncodeToString(sum[:]),
	})
	token.Header["kid"] = kid
	s, err := token.SignedString(priv)
	require.NoError(t, err)
	return s
}

func TestVerifyAcceptsSignedBody(t *testing.T) {
	priv, keys := newSigningKey(t, "k1")
	v := NewVerifier(keys)
	body := []byte(`{"webhook_type":"TRANSACTIONS"}`)

	require.NoError(t, v.Verify(context.Background(), body, sign(t, priv, "k1", body, time.Now())))
	require.NoError(t, v.Verify(context.Background(), body, sign(t, priv, "k1", body, time.Now())))
	assert.Equal(t, 1, keys.calls, "key should be cached")
}

func TestVerifyRejectsTamperedOrStale(t *testing.T) {
	priv, keys := newSigningKey(t, "k1")
	v := NewVerifier(keys)
	body := []byte(`{"webhook_type":"TRANSACTIONS"}`)

	err := v.Verify(context.Background(), []byte(`{"webhook_type":"ITEM"}`), sign(t, priv, "k1", body, time.Now()))
	assert.ErrorContains(t, err, "body hash mismatch")

	err = v.Verify(context.Background(), body, sign(t, priv, "k1", body, time.Now().Add(-10*time.Minute)))
	assert.ErrorContains(t, err, "too old")

	err = v.Verify(context.Background(), body, "")
	assert.ErrorContains(t, err, "missing")

	err = v.Verify(context.Background(), body, sign(t, priv, "other", body, time.Now()))
	assert.ErrorContains(t, err, "get JWK")
}
