package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Service menerima notifikasi status pembayaran dari gateway eksternal lewat
// kafka dan memanggil workflow order. Decrement stok terjadi di dalam
// transaksi workflow, bukan di sini.
type Service struct {
	Orders      *checkout.OrderService
	Redis       *redis.Client
	Producer    *kafkax.Producer // publish order.status
	ServiceName string
}

// HandlePaymentReported: dipasang sebagai handler consumer.
func (s *Service) HandlePaymentReported(ctx context.Context, m kafkago.Message) error {
	var env checkout.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != checkout.EventPaymentStatusReported {
		return nil
	}

	// dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, "payments", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	p, err := kafkax.UnwrapPayload[checkout.PaymentStatusReportedPayload](env.Payload)
	if err != nil {
		return err
	}

	res, err := s.Orders.UpdatePaymentStatus(ctx, p.PaymentID, p.Status)
	if err != nil {
		// error klien (payment hilang, status aneh, sudah settle) tidak akan
		// sembuh dengan retry: catat, commit offset
		if checkout.Kind(err) != checkout.KindInternal {
			log.Printf("payment event %s dropped: %v", env.EventID, err)
			return nil
		}
		return err
	}

	// refresh cache status order
	skey := fmt.Sprintf(redisx.KeyOrderStatus, res.OrderID)
	_ = s.Redis.Set(ctx, skey, fmt.Sprintf(`{"status":%q}`, res.OrderStatus), redisx.TTLStatusCache).Err()

	return s.publishOrderStatus(ctx, res, env.TraceID)
}

func (s *Service) publishOrderStatus(ctx context.Context, res checkout.PaymentTransition, trace string) error {
	ev := checkout.Envelope{
		EventID:       uuid.NewString(),
		EventType:     checkout.EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: res.OrderID,
		Payload: kafkax.MustMarshal(checkout.OrderStatusChangedPayload{
			OrderID:   res.OrderID,
			PaymentID: res.PaymentID,
			Status:    string(res.OrderStatus),
			Reason:    string(res.PaymentStatus),
		}),
	}
	s.Producer.Publish(checkout.PartitionKey(res.OrderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(checkout.EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}
