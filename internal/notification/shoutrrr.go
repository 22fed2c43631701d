package notification

import (
	"context"
	"io"
	"log"
	"net/url"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/safetrack/safetrack/internal/errors"
)

// ShoutrrrSender sends alerts through every configured shoutrrr URL.
type ShoutrrrSender struct {
	name   string
	urls   []string
	sender *router.ServiceRouter
}

// NewShoutrrrSender validates urls and builds the router.
func NewShoutrrrSender(name string, urls []string, timeout time.Duration) (*ShoutrrrSender, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component(component).
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.New(sanitizeError(err, urls)).
			Component(component).
			Category(errors.CategoryConfiguration).
			Context("urls", len(urls)).
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	name = strings.TrimSpace(name)
	if name == "" {
		name = "shoutrrr"
	}
	return &ShoutrrrSender{name: name, urls: slices.Clone(urls), sender: sender}, nil
}

// Name returns the provider name used in metrics.
func (s *ShoutrrrSender) Name() string { return s.name }

// Send delivers alert to every URL. The router applies its own timeout.
func (s *ShoutrrrSender) Send(ctx context.Context, alert *Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if alert.Title != "" {
		params.SetTitle(alert.Title)
	}

	var errs []error
	for _, err := range s.sender.Send(alert.Message, &params) {
		if err != nil {
			errs = append(errs, sanitizeError(err, s.urls))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.New(errors.Join(errs...)).
		Component(component).
		Category(errors.CategoryNetwork).
		Context("provider", s.name).
		Context("failed", len(errs)).
		Build()
}

// sanitizeError strips service URLs, which carry tokens, from err's text.
func sanitizeError(err error, urls []string) error {
	msg := err.Error()
	for _, raw := range urls {
		msg = strings.ReplaceAll(msg, raw, redactURL(raw))
	}
	return errors.NewStd(msg)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return "[redacted]"
	}
	return u.Scheme + "://[redacted]"
}
