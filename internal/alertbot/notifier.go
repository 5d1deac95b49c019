package alertbot

import (
	"context"
	"io"
	"log"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/tphakala/sentinel-go/internal/capture"
	"github.com/tphakala/sentinel-go/internal/conf"
	"github.com/tphakala/sentinel-go/internal/errors"
	"github.com/tphakala/sentinel-go/internal/observability"
)

const mirrorTimeout = 10 * time.Second

// Notifier delivers alerts to the bound owner. Sending without a bound
// owner is a configuration error and fails loudly rather than being
// swallowed.
type Notifier struct {
	transport Transport
	settings  *conf.Settings
	mirror    *router.ServiceRouter
	metrics   *observability.Metrics
}

// NewNotifier creates a notifier over transport. When the notification
// mirror is enabled its URLs are validated eagerly.
func NewNotifier(settings *conf.Settings, transport Transport, metrics *observability.Metrics) (*Notifier, error) {
	n := &Notifier{
		transport: transport,
		settings:  settings,
		metrics:   metrics,
	}

	if settings.Notification.Enabled && len(settings.Notification.URLs) > 0 {
		sender, err := shoutrrr.CreateSender(settings.Notification.URLs...)
		if err != nil {
			return nil, errors.Newf("invalid notification mirror URL: %w", err).
				Component("alertbot").
				Category(errors.CategoryConfiguration).
				Build()
		}
		sender.Timeout = mirrorTimeout
		sender.SetLogger(log.New(io.Discard, "", 0))
		n.mirror = sender
	}

	return n, nil
}

// owner returns the bound owner address or a configuration error.
func (n *Notifier) owner() (string, error) {
	owner := n.settings.OwnerAddress()
	if owner == "" {
		return "", errors.Newf("no owner bound, run setup and /init first").
			Component("alertbot").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return owner, nil
}

// Notify sends text to the owner and mirrors it to the configured
// notification URLs.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	owner, err := n.owner()
	if err != nil {
		return err
	}

	if err := n.transport.SendText(ctx, owner, text); err != nil {
		if n.metrics != nil {
			n.metrics.NotifyFailures.Inc()
		}
		return errors.New(err).
			Component("alertbot").
			Category(errors.CategoryNotification).
			Build()
	}

	n.mirrorText(text)
	return nil
}

// SendMedia transmits each captured file to the owner with its caption.
// A failing file does not stop delivery of the rest.
func (n *Notifier) SendMedia(ctx context.Context, media []capture.Media) error {
	owner, err := n.owner()
	if err != nil {
		return err
	}

	var errs []error
	for _, m := range media {
		if err := n.transport.SendMedia(ctx, owner, m.Path, m.Caption); err != nil {
			botLogger.Error("Media delivery failed", "path", m.Path, "error", err)
			if n.metrics != nil {
				n.metrics.NotifyFailures.Inc()
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// mirrorText duplicates a notification to the shoutrrr URLs. Mirror
// failures are logged, the primary delivery already succeeded.
func (n *Notifier) mirrorText(text string) {
	if n.mirror == nil {
		return
	}
	params := stypes.Params{}
	params.SetTitle(n.settings.Main.Name)
	for _, err := range n.mirror.Send(text, &params) {
		if err != nil {
			botLogger.Warn("Notification mirror failed", "error", err)
		}
	}
}
