package webpush

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/errors"
	"github.com/vantazh/vantazh-go/internal/httpclient"
)

const testEndpoint = "https://push.example.org/send/abc123"

// newMockedClient builds a push Client whose HTTP layer is served by
// httpmock instead of the network.
func newMockedClient(t *testing.T, ttl int) (*Client, *httpmock.MockTransport) {
	t.Helper()

	transport := httpmock.NewMockTransport()
	client := &Client{
		http: httpclient.New(&httpclient.Config{
			DefaultTimeout: 2 * time.Second,
			Transport:      transport,
		}),
		ttl: ttl,
	}
	t.Cleanup(client.Close)
	return client, transport
}

func TestSendSetsPushHeaders(t *testing.T) {
	t.Parallel()

	client, transport := newMockedClient(t, 1800)
	p256dh, auth, _, _ := newTestSubscription(t)

	var gotTTL, gotEncoding, gotContentType string
	var gotBodyLen int64
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			gotTTL = req.Header.Get("TTL")
			gotEncoding = req.Header.Get("Content-Encoding")
			gotContentType = req.Header.Get("Content-Type")
			gotBodyLen = req.ContentLength
			return httpmock.NewStringResponse(http.StatusCreated, ""), nil
		})

	err := client.Send(context.Background(), testEndpoint, p256dh, auth, []byte(`{"title":"t"}`))
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if gotTTL != "1800" {
		t.Errorf("expected TTL header 1800, got %q", gotTTL)
	}
	if gotEncoding != "aes128gcm" {
		t.Errorf("expected aes128gcm content encoding, got %q", gotEncoding)
	}
	if gotContentType != "application/octet-stream" {
		t.Errorf("unexpected content type %q", gotContentType)
	}
	// 86-byte coding header + ciphertext
	if gotBodyLen <= 86 {
		t.Errorf("body suspiciously small: %d bytes", gotBodyLen)
	}
}

func TestSendReportsEndpointFailure(t *testing.T) {
	t.Parallel()

	client, transport := newMockedClient(t, 60)
	p256dh, auth, _, _ := newTestSubscription(t)

	transport.RegisterResponder(http.MethodPost, testEndpoint,
		httpmock.NewStringResponder(http.StatusGone, "subscription expired"))

	err := client.Send(context.Background(), testEndpoint, p256dh, auth, []byte("payload"))
	if err == nil {
		t.Fatal("expected failure for 410 response")
	}
	if !errors.HasCategory(err, errors.CategoryPushDelivery) {
		t.Errorf("expected push-delivery category, got %v", err)
	}
	if !strings.Contains(err.Error(), "410") {
		t.Errorf("expected status code in error, got %q", err.Error())
	}
}

func TestSendVAPIDAuthorization(t *testing.T) {
	t.Parallel()

	// key pair generated for this test only
	settings := &conf.PushSettings{
		TTLSeconds: 60,
		Timeout:    2 * time.Second,
		VAPID: conf.VAPIDSettings{
			Subject:    "mailto:dispatch@vantazh.ua",
			PublicKey:  "BNcRdreALRFXTkOOUHK1EtK2wtaz5Ry4YfYCA_0QTpQtUbVlUls0VJXg7A8u-Ts1XbjhazAkj7I99e8QcYP7DkM",
			PrivateKey: "xZ9Yw1CbMq3mDJGYkDFGm0cqQdGEDLfYKteBQtk4K1c",
		},
	}

	client, err := NewClient(settings)
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	t.Cleanup(client.Close)

	transport := httpmock.NewMockTransport()
	client.http = httpclient.New(&httpclient.Config{Transport: transport})

	var gotAuth string
	transport.RegisterResponder(http.MethodPost, testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			return httpmock.NewStringResponse(http.StatusCreated, ""), nil
		})

	p256dh, auth, _, _ := newTestSubscription(t)
	if err := client.Send(context.Background(), testEndpoint, p256dh, auth, []byte("x")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if !strings.HasPrefix(gotAuth, "vapid t=") {
		t.Errorf("expected vapid authorization header, got %q", gotAuth)
	}
	if !strings.Contains(gotAuth, "k="+settings.VAPID.PublicKey) {
		t.Error("expected public key in k= parameter")
	}
}

func TestVAPIDTokenCachedPerOrigin(t *testing.T) {
	t.Parallel()

	signer, err := newVAPIDSigner("mailto:dispatch@vantazh.ua",
		"BNcRdreALRFXTkOOUHK1EtK2wtaz5Ry4YfYCA_0QTpQtUbVlUls0VJXg7A8u-Ts1XbjhazAkj7I99e8QcYP7DkM",
		"xZ9Yw1CbMq3mDJGYkDFGm0cqQdGEDLfYKteBQtk4K1c")
	if err != nil {
		t.Fatalf("building signer: %v", err)
	}

	first, err := signer.authorizationHeader("https://push.example.org/send/a")
	if err != nil {
		t.Fatalf("first header: %v", err)
	}
	second, err := signer.authorizationHeader("https://push.example.org/send/b")
	if err != nil {
		t.Fatalf("second header: %v", err)
	}
	if first != second {
		t.Error("tokens for the same origin must be reused")
	}

	other, err := signer.authorizationHeader("https://other.example.net/send/c")
	if err != nil {
		t.Fatalf("other origin header: %v", err)
	}
	if other == first {
		t.Error("tokens must differ across origins")
	}
}

func TestNewClientRejectsBadVAPIDKey(t *testing.T) {
	t.Parallel()

	settings := &conf.PushSettings{
		VAPID: conf.VAPIDSettings{PrivateKey: "dG9vLXNob3J0"},
	}
	_, err := NewClient(settings)
	if err == nil {
		t.Fatal("expected error for malformed private key")
	}
	if !errors.HasCategory(err, errors.CategoryConfiguration) {
		t.Errorf("expected configuration category, got %v", err)
	}
}
