package notifications

import (
	"context"

	"github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/devices"
	nr "github.com/diwise/iot-telemetry-core/internal/pkg/infrastructure/repositories/database/notifications"
)

// inAppChannel is a pass-through. In-app delivery happens through the ALERT_CREATED event.
type inAppChannel struct{}

func NewInAppChannel() Channel {
	return inAppChannel{}
}

func (inAppChannel) Send(ctx context.Context, user devices.User, alert AlertContext, pref nr.NotificationPreference) bool {
	return true
}

// DefaultChannels builds the channel table used by the dispatcher.
func DefaultChannels(email EmailChannel, sms SmsService, webhook WebhookChannel) map[nr.Channel]Channel {
	return map[nr.Channel]Channel{
		nr.ChannelEmail:   email,
		nr.ChannelSMS:     NewSmsChannel(sms),
		nr.ChannelWebhook: webhook,
		nr.ChannelInApp:   NewInAppChannel(),
	}
}
