// encrypt.go: message encryption for Web Push (RFC 8291, aes128gcm content
// coding from RFC 8188). Each message gets a fresh application-server key
// pair and salt, so encryption is never reused across recipients.
package webpush

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// recordSize is the single-record size advertised in the coding header.
	recordSize = 4096

	// maxPlaintextSize keeps the padded record within recordSize:
	// 16 bytes GCM tag + 1 byte padding delimiter + 86 bytes header.
	maxPlaintextSize = recordSize - 16 - 1 - 86

	keyInfoPrefix = "WebPush: info\x00"
	cekInfo       = "Content-Encoding: aes128gcm\x00"
	nonceInfo     = "Content-Encoding: nonce\x00"
)

// decodeKey accepts both base64url raw (the browser PushSubscription
// encoding) and standard base64 with padding.
func decodeKey(s string) ([]byte, error) {
	if b, err := base64.RawURLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	if b, err := base64.URLEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// encryptPayload encrypts plaintext for the subscription identified by the
// client public key (p256dh) and auth secret, returning the full aes128gcm
// body: header || ciphertext.
func encryptPayload(p256dh, auth string, plaintext []byte) ([]byte, error) {
	if len(plaintext) > maxPlaintextSize {
		return nil, fmt.Errorf("payload too large: %d bytes, limit %d", len(plaintext), maxPlaintextSize)
	}

	clientPubBytes, err := decodeKey(p256dh)
	if err != nil {
		return nil, fmt.Errorf("decoding subscription p256dh key: %w", err)
	}
	authSecret, err := decodeKey(auth)
	if err != nil {
		return nil, fmt.Errorf("decoding subscription auth secret: %w", err)
	}

	curve := ecdh.P256()
	clientPub, err := curve.NewPublicKey(clientPubBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid subscription public key: %w", err)
	}

	serverKey, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ephemeral key: %w", err)
	}
	serverPubBytes := serverKey.PublicKey().Bytes()

	sharedSecret, err := serverKey.ECDH(clientPub)
	if err != nil {
		return nil, fmt.Errorf("computing shared secret: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	// IKM = HKDF(auth, ecdh_secret, "WebPush: info" || 0x00 || ua_public || as_public)
	keyInfo := make([]byte, 0, len(keyInfoPrefix)+len(clientPubBytes)+len(serverPubBytes))
	keyInfo = append(keyInfo, keyInfoPrefix...)
	keyInfo = append(keyInfo, clientPubBytes...)
	keyInfo = append(keyInfo, serverPubBytes...)

	ikm := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, sharedSecret, authSecret, keyInfo), ikm); err != nil {
		return nil, fmt.Errorf("deriving input keying material: %w", err)
	}

	cek := make([]byte, 16)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte(cekInfo)), cek); err != nil {
		return nil, fmt.Errorf("deriving content encryption key: %w", err)
	}

	nonce := make([]byte, 12)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, []byte(nonceInfo)), nonce); err != nil {
		return nil, fmt.Errorf("deriving nonce: %w", err)
	}

	block, err := aes.NewCipher(cek)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	// last (only) record: plaintext || 0x02 padding delimiter
	record := make([]byte, 0, len(plaintext)+1)
	record = append(record, plaintext...)
	record = append(record, 0x02)

	ciphertext := aead.Seal(nil, nonce, record, nil)

	// coding header: salt (16) || rs (4) || idlen (1) || keyid (65)
	body := make([]byte, 0, 16+4+1+len(serverPubBytes)+len(ciphertext))
	body = append(body, salt...)
	body = binary.BigEndian.AppendUint32(body, recordSize)
	body = append(body, byte(len(serverPubBytes)))
	body = append(body, serverPubBytes...)
	body = append(body, ciphertext...)

	return body, nil
}
