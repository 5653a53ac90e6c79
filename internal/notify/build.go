package notify

import (
	"github.com/sirupsen/logrus"

	"github.com/prompt-gallery/internal/config"
)

// FromConfig wires the senders that have credentials configured. With none
// configured, events go to Nop.
func FromConfig(cfg config.NotifyConfig, log logrus.FieldLogger) *Dispatcher {
	var senders Multi
	if cfg.OneSignalAPIKey != "" && cfg.OneSignalAppID != "" {
		senders = append(senders, NewOneSignal(cfg.OneSignalAppID, cfg.OneSignalAPIKey, cfg.OneSignalBaseURL, cfg.AppURL))
	}
	if cfg.DiscordWebhook != "" {
		senders = append(senders, NewDiscord(cfg.DiscordWebhook, cfg.AppURL, cfg.RateLimitMs))
	}

	switch len(senders) {
	case 0:
		return NewDispatcher(Nop{}, cfg.Timeout, log)
	case 1:
		return NewDispatcher(senders[0], cfg.Timeout, log)
	default:
		return NewDispatcher(senders, cfg.Timeout, log)
	}
}
