package alert

import (
	"context"

	"dealradar/internal/domain"
)

// Dispatcher delivers one selected alert. A non-nil error is a delivery
// failure: the caller logs it and records the listing as alerted anyway,
// trading a possibly missed notification for never spamming the channel
// on a flaky endpoint.
type Dispatcher interface {
	Send(ctx context.Context, alert domain.Alert) error
}

// NopDispatcher accepts every alert without delivering it. Used by dry
// runs and as the default when no endpoint is configured.
type NopDispatcher struct{}

// Compile-time interface check.
var _ Dispatcher = NopDispatcher{}

func (NopDispatcher) Send(context.Context, domain.Alert) error { return nil }
