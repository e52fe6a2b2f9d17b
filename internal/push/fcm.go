package push

import (
	"context"

	"firebase.google.com/go/v4/messaging"
)

// FCMClient delivers messages through Firebase Cloud Messaging.
type FCMClient struct {
	client *messaging.Client
}

func NewFCMClient(client *messaging.Client) *FCMClient {
	return &FCMClient{client: client}
}

func (c *FCMClient) Send(ctx context.Context, msg Message) (string, error) {
	receipt, err := c.client.Send(ctx, toFCM(msg))
	if err != nil {
		return "", &DeliveryError{Err: err}
	}
	return receipt, nil
}

func toFCM(msg Message) *messaging.Message {
	out := &messaging.Message{
		Token: msg.Token,
		Topic: msg.Topic,
		Data:  msg.Data,
	}
	if msg.Title != "" || msg.Body != "" {
		out.Notification = &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		}
	}
	return out
}
