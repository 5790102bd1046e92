// Package service contains outbound service adapters: the notification
// dispatcher delivering rendered content over a channel implementation.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edbridge/onboarding-engine/internal/domain/notification"
	"github.com/edbridge/onboarding-engine/internal/domain/shared"
	"github.com/edbridge/onboarding-engine/pkg/retry"
)

// Channel is one delivery transport (email provider, webhook, messenger).
type Channel interface {
	Send(ctx context.Context, recipient notification.Recipient, content notification.Content) error
}

// ChannelFunc adapts a function to the Channel interface.
type ChannelFunc func(ctx context.Context, recipient notification.Recipient, content notification.Content) error

// Send implements Channel.
func (f ChannelFunc) Send(ctx context.Context, recipient notification.Recipient, content notification.Content) error {
	return f(ctx, recipient, content)
}

// LogChannel is the default channel: it logs the notification instead of
// delivering it. Used in development and as a safe fallback when no real
// transport is configured.
func LogChannel(logger *slog.Logger) Channel {
	return ChannelFunc(func(_ context.Context, recipient notification.Recipient, content notification.Content) error {
		logger.Info("notification (log channel)",
			"recipient", recipient.Email,
			"subject", content.Subject,
		)
		return nil
	})
}

// Dispatcher implements notification.Dispatcher with per-recipient retries.
// A failure for one recipient does not stop delivery to the others.
type Dispatcher struct {
	channel Channel
	retries retry.Config
	bus     shared.EventPublisher
	logger  *slog.Logger
}

// DispatcherConfig configures the Dispatcher.
type DispatcherConfig struct {
	// Retries configures the per-recipient retry behavior.
	Retries retry.Config

	// Bus, when set, receives a NotificationSentEvent per delivered recipient.
	Bus shared.EventPublisher

	// Logger for structured logging.
	Logger *slog.Logger
}

// NewDispatcher creates a Dispatcher over the given channel.
func NewDispatcher(channel Channel, config DispatcherConfig) *Dispatcher {
	if channel == nil {
		channel = LogChannel(slog.Default())
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Dispatcher{
		channel: channel,
		retries: config.Retries,
		bus:     config.Bus,
		logger:  config.Logger,
	}
}

// Dispatch implements notification.Dispatcher.
func (d *Dispatcher) Dispatch(ctx context.Context, kind shared.EventType, recipients []notification.Recipient, content notification.Content) error {
	var failed int
	for _, recipient := range recipients {
		if recipient.Email == "" {
			d.logger.Warn("skipping recipient without address",
				"recipient_id", recipient.ID,
				"kind", string(kind),
			)
			continue
		}

		err := retry.Do(ctx, d.retries, func(ctx context.Context) error {
			return d.channel.Send(ctx, recipient, content)
		})
		if err != nil {
			failed++
			d.logger.Error("notification delivery failed",
				"recipient", recipient.Email,
				"kind", string(kind),
				"error", err,
			)
			continue
		}

		d.logger.Info("notification delivered",
			"recipient", recipient.Email,
			"kind", string(kind),
		)
		if d.bus != nil {
			event := shared.NewNotificationSentEvent(recipient.ID, kind, recipient.Email)
			if err := d.bus.Publish(event); err != nil {
				d.logger.Error("failed to publish notification event", "error", err)
			}
		}
	}

	if failed > 0 {
		return shared.WrapError("notification", "Dispatch", shared.ErrExternalService,
			fmt.Sprintf("%d of %d deliveries failed", failed, len(recipients)), nil)
	}
	return nil
}
