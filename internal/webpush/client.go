// Package webpush delivers encrypted Web Push messages (RFC 8030) to
// subscription endpoints. One call is one delivery attempt: the engine
// never retries and never revokes subscriptions, that is the registration
// collaborator's job.
package webpush

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/errors"
	"github.com/vantazh/vantazh-go/internal/httpclient"
)

const maxErrorBodySize = 512

// Client posts encrypted payloads to push-service endpoints.
// Thread-safe for concurrent use.
type Client struct {
	http   *httpclient.Client
	signer *vapidSigner
	ttl    int
}

// NewClient builds a push client from settings. VAPID keys are optional;
// without them requests are sent unsigned, which most push services reject
// for new subscriptions but test endpoints accept.
func NewClient(settings *conf.PushSettings) (*Client, error) {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		http: httpclient.New(&httpclient.Config{DefaultTimeout: timeout}),
		ttl:  settings.TTLSeconds,
	}

	if settings.VAPID.PrivateKey != "" {
		signer, err := newVAPIDSigner(settings.VAPID.Subject, settings.VAPID.PublicKey, settings.VAPID.PrivateKey)
		if err != nil {
			return nil, errors.New(err).
				Component("webpush").
				Category(errors.CategoryConfiguration).
				Build()
		}
		c.signer = signer
	}

	return c, nil
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.http.Close()
}

// Send encrypts payload for the subscription and posts it to the endpoint.
// Any non-2xx response or transport error is returned as a failure; the
// caller decides what to do with it (the dispatch engine only counts it).
func (c *Client) Send(ctx context.Context, endpoint, p256dh, auth string, payload []byte) error {
	body, err := encryptPayload(p256dh, auth, payload)
	if err != nil {
		return errors.New(err).
			Component("webpush").
			Category(errors.CategoryPushDelivery).
			Context("stage", "encrypt").
			Build()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.New(err).
			Component("webpush").
			Category(errors.CategoryPushDelivery).
			Context("stage", "build_request").
			Build()
	}

	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Content-Encoding", "aes128gcm")
	req.Header.Set("TTL", strconv.Itoa(c.ttl))

	if c.signer != nil {
		authHeader, err := c.signer.authorizationHeader(endpoint)
		if err != nil {
			return errors.New(err).
				Component("webpush").
				Category(errors.CategoryPushDelivery).
				Context("stage", "vapid").
				Build()
		}
		req.Header.Set("Authorization", authHeader)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New(err).
			Component("webpush").
			Category(errors.CategoryNetwork).
			Context("stage", "post").
			Build()
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return errors.New(fmt.Errorf("push endpoint returned %d: %s", resp.StatusCode, snippet)).
			Component("webpush").
			Category(errors.CategoryPushDelivery).
			Context("status_code", resp.StatusCode).
			Build()
	}

	return nil
}
