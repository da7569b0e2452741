package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/storefront/internal/logger"
)

const KindOrderPlaced = "order_placed"

// OrderNotification asks the mail sink to tell a customer about an order.
type OrderNotification struct {
	MessageID  string    `json:"message_id"`
	Kind       string    `json:"kind"`
	OrderID    int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Total      string    `json:"total"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier hands a notification to an external sink. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n OrderNotification) error
}

// LogNotifier only logs notifications. Used when no broker is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(ctx context.Context, n OrderNotification) error {
	logger.FromContext(ctx, l.log).Info("order notification",
		"kind", n.Kind, "order_id", n.OrderID, "customer_id", n.CustomerID, "email", n.Email)
	return nil
}
