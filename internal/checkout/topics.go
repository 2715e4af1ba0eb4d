package checkout

const (
	TopicOrderPlaced   = "checkout.order.placed"
	TopicPaymentStatus = "checkout.payment.status"
	TopicOrderStatus   = "checkout.order.status"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
