package services

import (
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"

	"ticket-marketplace/models"
)

// Notifier pushes best-effort realtime messages to users.
type Notifier interface {
	Notify(userID string, n models.Notification)
}

// PubNubNotifier publishes to the user-<id> channel.
type PubNubNotifier struct {
	PubNub *pubnub.PubNub
	log    *slog.Logger
}

func NewPubNubNotifier(pn *pubnub.PubNub, logger *slog.Logger) *PubNubNotifier {
	return &PubNubNotifier{PubNub: pn, log: logger}
}

func (p *PubNubNotifier) Notify(userID string, n models.Notification) {
	channel := fmt.Sprintf("user-%s", userID)
	if _, _, err := p.PubNub.Publish().Channel(channel).Message(n).Execute(); err != nil {
		p.log.Warn("failed to publish notification", "channel", channel, "type", n.Type, "error", err)
	}
}

type NopNotifier struct{}

func (NopNotifier) Notify(string, models.Notification) {}
