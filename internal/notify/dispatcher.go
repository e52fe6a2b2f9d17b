package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/example/order-notify/internal/push"
	"github.com/example/order-notify/internal/store"
)

// clickAction tells the Flutter client to route on notification tap.
const clickAction = "FLUTTER_NOTIFICATION_CLICK"

// Dispatcher turns validated requests into provider messages and, for
// broadcasts, mirrors the notification into every user's log. It holds no
// state of its own; both collaborators are safe for concurrent use.
type Dispatcher struct {
	Push   push.Client
	Store  store.Store
	Logger zerolog.Logger

	// FanOutLimit caps concurrent log appends during a broadcast.
	// Zero means unbounded.
	FanOutLimit int
}

// DispatchOrderPlaced pushes a new-order alert to the admin device. No retry;
// the provider's failure is surfaced as-is.
func (d *Dispatcher) DispatchOrderPlaced(ctx context.Context, req OrderPlacedRequest) (string, error) {
	ctx, span := otel.Tracer("notify").Start(ctx, "dispatch_order_placed")
	defer span.End()

	msg := push.Message{
		Token: req.AdminToken,
		Title: "New Order Placed",
		Body:  fmt.Sprintf("%s placed an order worth ₹%s", req.CustomerName, req.Amount.String()),
		Data: map[string]string{
			"screen":       "admin_orders",
			"click_action": clickAction,
		},
	}

	receipt, err := d.Push.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("push.receipt", receipt))
	d.Logger.Info().Str("receipt", receipt).Str("customer", req.CustomerName).Msg("order alert sent")
	return receipt, nil
}

// DispatchBroadcast pushes to the topic first; a delivery failure aborts the
// whole operation and the fan-out never runs. On push success the fan-out
// result is returned alongside the receipt — log-append failures never undo
// the already-sent push, so they do not surface as an error here.
func (d *Dispatcher) DispatchBroadcast(ctx context.Context, req BroadcastRequest) (string, FanOutResult, error) {
	ctx, span := otel.Tracer("notify").Start(ctx, "dispatch_broadcast")
	defer span.End()

	msg := push.Message{
		Topic: req.Topic,
		Title: req.Title,
		Body:  req.Body,
		Data: map[string]string{
			"title":        req.Title,
			"body":         req.Body,
			"image":        req.Image,
			"screen":       "user_notifications",
			"click_action": clickAction,
		},
	}

	receipt, err := d.Push.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		return "", FanOutResult{}, err
	}
	span.SetAttributes(attribute.String("push.receipt", receipt))
	d.Logger.Info().Str("topic", req.Topic).Str("receipt", receipt).Msg("broadcast sent")

	entry := store.LogEntry{Title: req.Title, Body: req.Body, Image: req.Image}
	result, err := d.fanOut(ctx, entry)
	if err != nil {
		// The push already went out; the missing audit trail is an
		// operator concern, not a caller one.
		span.RecordError(err)
		d.Logger.Error().Err(err).Str("topic", req.Topic).Msg("notification log fan-out failed")
		return receipt, result, nil
	}

	for _, f := range result.Failed {
		d.Logger.Error().Err(f.Err).Str("user_id", f.UserID).Str("topic", req.Topic).Msg("notification log append failed")
	}
	d.Logger.Info().
		Str("topic", req.Topic).
		Int("succeeded", result.Succeeded).
		Int("failed", len(result.Failed)).
		Msg("broadcast fan-out settled")
	return receipt, result, nil
}

// DispatchStatusUpdate pushes an order-status change to the customer's
// device. orderId and status ride along in data so the client can deep-link.
func (d *Dispatcher) DispatchStatusUpdate(ctx context.Context, req StatusUpdateRequest) (string, error) {
	ctx, span := otel.Tracer("notify").Start(ctx, "dispatch_status_update")
	defer span.End()

	body := fmt.Sprintf("Your order is now %s", req.Status)
	if req.UserName != "" && req.Amount.String() != "" {
		body = fmt.Sprintf("%s, your order of ₹%s is now %s", req.UserName, req.Amount.String(), req.Status)
	}

	msg := push.Message{
		Token: req.UserToken,
		Title: "Order Status Updated",
		Body:  body,
		Data: map[string]string{
			"screen":       "order_status",
			"click_action": clickAction,
			"orderId":      req.OrderID,
			"status":       req.Status,
		},
	}

	receipt, err := d.Push.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("push.receipt", receipt))
	d.Logger.Info().Str("receipt", receipt).Str("order_id", req.OrderID).Str("status", req.Status).Msg("status update sent")
	return receipt, nil
}
