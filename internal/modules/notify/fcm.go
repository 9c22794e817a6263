// README: FCM notifier; payload shape mirrors the mobile apps' high-priority order channel.
package notify

import (
	"context"
	"log"

	"firebase.google.com/go/v4/messaging"
)

// FCMNotifier sends pushes through the Firebase Admin SDK messaging client.
type FCMNotifier struct {
	client *messaging.Client
}

func NewFCMNotifier(client *messaging.Client) *FCMNotifier {
	return &FCMNotifier{client: client}
}

// LogNotifier stands in for FCM in environments without Firebase credentials.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, token, title, _ string, _ map[string]string) error {
	log.Printf("notify (dry-run): %q to token %s", title, token)
	return nil
}

func (n *FCMNotifier) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:       "default",
				ChannelID:   "high_importance_channel",
				ClickAction: "ORDER_REQUEST_ACTION",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:    "default",
					Category: "ORDER_REQUEST_CATEGORY",
				},
			},
		},
	}
	_, err := n.client.Send(ctx, msg)
	return err
}
