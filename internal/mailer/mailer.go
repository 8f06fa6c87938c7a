// Package mailer sends notification emails through a shoutrrr service URL.
// The dispatch engine treats it as an opaque collaborator: one call is one
// delivery attempt, failures are reported back and never retried here.
package mailer

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"golang.org/x/time/rate"

	"github.com/vantazh/vantazh-go/internal/conf"
	"github.com/vantazh/vantazh-go/internal/errors"
)

// Sender is the email collaborator interface consumed by the dispatch
// engine. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, to, kind, title, body, targetURL string) error
}

// Mailer implements Sender using a shoutrrr SMTP service URL.
type Mailer struct {
	sender  *router.ServiceRouter
	limiter *rate.Limiter
}

// New creates a Mailer from settings. The configured URL must be a valid
// shoutrrr service URL; it is validated at construction so a broken mail
// configuration surfaces at startup, not mid-broadcast.
func New(settings *conf.EmailSettings) (*Mailer, error) {
	url := strings.TrimSpace(settings.URL)
	if url == "" {
		return nil, errors.Newf("email URL is empty").
			Component("mailer").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(url)
	if err != nil {
		return nil, errors.New(err).
			Component("mailer").
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	sender.Timeout = timeout

	m := &Mailer{sender: sender}
	if settings.RatePerMinute > 0 {
		m.limiter = rate.NewLimiter(rate.Limit(float64(settings.RatePerMinute)/60.0), settings.RatePerMinute)
	}
	return m, nil
}

// Send renders the message for the given notification kind and delivers it
// to one recipient address. When a rate cap is configured the call waits
// for a slot rather than dropping, so every requested send is attempted.
func (m *Mailer) Send(ctx context.Context, to, kind, title, body, targetURL string) error {
	if m.limiter != nil {
		if err := m.limiter.Wait(ctx); err != nil {
			return errors.New(err).
				Component("mailer").
				Category(errors.CategoryTimeout).
				Context("stage", "rate_wait").
				Build()
		}
	}

	text, err := renderText(kind, title, body, targetURL)
	if err != nil {
		return errors.New(err).
			Component("mailer").
			Category(errors.CategoryEmailDelivery).
			Context("stage", "render").
			Build()
	}

	params := stypes.Params{}
	params.SetTitle(title)
	if to != "" {
		params["toaddresses"] = to
	}

	errs := m.sender.Send(text, &params)
	for _, sendErr := range errs {
		if sendErr != nil {
			return errors.New(fmt.Errorf("email delivery failed: %w", sendErr)).
				Component("mailer").
				Category(errors.CategoryEmailDelivery).
				Build()
		}
	}
	return nil
}
