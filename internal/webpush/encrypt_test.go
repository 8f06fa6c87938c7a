package webpush

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"io"
	"testing"

	"golang.org/x/crypto/hkdf"
)

// newTestSubscription generates a browser-side key pair and auth secret the
// way a user agent would when creating a PushSubscription.
func newTestSubscription(t *testing.T) (p256dh, auth string, key *ecdh.PrivateKey, secret []byte) {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating client key: %v", err)
	}
	secret = make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("generating auth secret: %v", err)
	}
	p256dh = base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes())
	auth = base64.RawURLEncoding.EncodeToString(secret)
	return p256dh, auth, key, secret
}

// decryptPayload reverses encryptPayload using the client private key,
// mirroring the user-agent side of RFC 8291.
func decryptPayload(t *testing.T, body []byte, clientKey *ecdh.PrivateKey, authSecret []byte) []byte {
	t.Helper()

	if len(body) < 16+4+1+65 {
		t.Fatalf("body too short: %d bytes", len(body))
	}
	salt := body[:16]
	rs := binary.BigEndian.Uint32(body[16:20])
	if rs != recordSize {
		t.Fatalf("expected record size %d, got %d", recordSize, rs)
	}
	idlen := int(body[20])
	if idlen != 65 {
		t.Fatalf("expected 65-byte key id, got %d", idlen)
	}
	serverPubBytes := body[21 : 21+idlen]
	ciphertext := body[21+idlen:]

	serverPub, err := ecdh.P256().NewPublicKey(serverPubBytes)
	if err != nil {
		t.Fatalf("parsing server public key: %v", err)
	}
	shared, err := clientKey.ECDH(serverPub)
	if err != nil {
		t.Fatalf("computing shared secret: %v", err)
	}

	keyInfo := append([]byte(keyInfoPrefix), clientKey.PublicKey().Bytes()...)
	keyInfo = append(keyInfo, serverPubBytes...)

	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared, authSecret, keyInfo), ikm); err != nil {
		t.Fatalf("deriving ikm: %v", err)
	}
	cek := make([]byte, 16)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte(cekInfo)), cek); err != nil {
		t.Fatalf("deriving cek: %v", err)
	}
	nonce := make([]byte, 12)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte(nonceInfo)), nonce); err != nil {
		t.Fatalf("deriving nonce: %v", err)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		t.Fatalf("creating cipher: %v", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatalf("creating GCM: %v", err)
	}
	record, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		t.Fatalf("decrypting: %v", err)
	}

	// strip the 0x02 padding delimiter
	idx := bytes.LastIndexByte(record, 0x02)
	if idx < 0 {
		t.Fatal("missing padding delimiter")
	}
	return record[:idx]
}

func TestEncryptPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	p256dh, auth, clientKey, secret := newTestSubscription(t)
	plaintext := []byte(`{"title":"Нове замовлення","body":"Цемент, Київ — Львів"}`)

	body, err := encryptPayload(p256dh, auth, plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	got := decryptPayload(t, body, clientKey, secret)
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch: got %q, want %q", got, plaintext)
	}
}

func TestEncryptPayloadFreshKeys(t *testing.T) {
	t.Parallel()

	p256dh, auth, _, _ := newTestSubscription(t)
	plaintext := []byte("same message")

	first, err := encryptPayload(p256dh, auth, plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	second, err := encryptPayload(p256dh, auth, plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if bytes.Equal(first, second) {
		t.Error("two encryptions of the same message must differ (fresh salt and key pair)")
	}
}

func TestEncryptPayloadRejectsOversized(t *testing.T) {
	t.Parallel()

	p256dh, auth, _, _ := newTestSubscription(t)
	_, err := encryptPayload(p256dh, auth, make([]byte, maxPlaintextSize+1))
	if err == nil {
		t.Error("expected error for oversized payload")
	}
}

func TestEncryptPayloadRejectsBadKeys(t *testing.T) {
	t.Parallel()

	if _, err := encryptPayload("not-base64!!!", "YWJj", []byte("x")); err == nil {
		t.Error("expected error for malformed p256dh")
	}
	// valid base64 but not a valid P-256 point
	bogus := base64.RawURLEncoding.EncodeToString(make([]byte, 65))
	if _, err := encryptPayload(bogus, "YWJj", []byte("x")); err == nil {
		t.Error("expected error for invalid public key bytes")
	}
}
