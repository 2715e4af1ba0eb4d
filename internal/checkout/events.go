package checkout

import (
	"encoding/json"
	"time"
)

const (
	EventOrderPlaced           = "OrderPlaced"
	EventPaymentStatusReported = "PaymentStatusReported"
	EventOrderStatusChanged    = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "checkout-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderPlacedPayload struct {
	OrderID    string          `json:"order_id"`
	UserID     string          `json:"user_id"`
	PaymentID  string          `json:"payment_id,omitempty"`
	Items      []OrderItemView `json:"items"`
	TotalCents int             `json:"total_cents"`
}

// PaymentStatusReported datang dari notifier eksternal (gateway simulator),
// bukan dari core ini.
type PaymentStatusReportedPayload struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"` // WAITING | SUCCESS | FAILED
	TxID      string `json:"tx_id,omitempty"`
}

type OrderStatusChangedPayload struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"` // status order hasil transisi
	Reason    string `json:"reason,omitempty"`
}
