package domain

// OrderKind distinguishes buyer orders from seller-bound return orders
type OrderKind string

const (
	OrderKindClient OrderKind = "client"
	OrderKindReturn OrderKind = "return"
)

// ProductStatus tags a product-status event in the ledger
type ProductStatus string

const (
	StatusWaitingForArrival ProductStatus = "waiting_for_product_arrival_in_opp"
	StatusArrivedInOPP      ProductStatus = "arrived_in_opp"
	StatusSentToLogistics   ProductStatus = "sent_to_logistics"
	StatusDelivered         ProductStatus = "delivered"
	StatusRefunded          ProductStatus = "refunded"
)

// IsValid checks if the product status is valid
func (s ProductStatus) IsValid() bool {
	switch s {
	case StatusWaitingForArrival,
		StatusArrivedInOPP,
		StatusSentToLogistics,
		StatusDelivered,
		StatusRefunded:
		return true
	default:
		return false
	}
}

// OrderStatus is an order-level status row used by the history projector
type OrderStatus string

const (
	OrderStatusCreated  OrderStatus = "created"
	OrderStatusDone     OrderStatus = "done"
	OrderStatusCanceled OrderStatus = "canceled"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusDone, OrderStatusCanceled:
		return true
	default:
		return false
	}
}

// Refund reasons recorded on refunded events
const (
	RefundReasonCanceled      = "order_canceled"
	RefundReasonBuyerRejected = "buyer_rejected"
)
