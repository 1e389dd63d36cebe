package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EventMeta is the status-specific payload of a ProductStatusEvent. Each
// status has exactly one variant, so the reducer's switch is exhaustive.
type EventMeta interface {
	isEventMeta()
}

// WaitingMeta accompanies waiting_for_product_arrival_in_opp
type WaitingMeta struct {
	OrderID uuid.UUID `json:"order_id"`
}

// ArrivedMeta accompanies arrived_in_opp. Exactly one of FromSeller or
// FromLogisticsOrderID is set for client-order arrivals; return orders open
// with neither (the quantity enters the new log fresh).
type ArrivedMeta struct {
	LocationID           uuid.UUID  `json:"location_id"`
	IsStartLocation      bool       `json:"is_start_location"`
	IsTargetLocation     bool       `json:"is_target_location"`
	FromSeller           bool       `json:"from_seller,omitempty"`
	FromLogisticsOrderID *uuid.UUID `json:"from_logistics_order_id,omitempty"`
}

// SentMeta accompanies sent_to_logistics. FromLocationID marks a normal leg
// leaving a pickup point; PreviousLogisticsOrderID marks a re-routed leg.
type SentMeta struct {
	LogisticsOrderID         uuid.UUID  `json:"logistics_order_id"`
	FromLocationID           *uuid.UUID `json:"from_location_id,omitempty"`
	PreviousLogisticsOrderID *uuid.UUID `json:"previous_logistics_order_id,omitempty"`
}

// DeliveredMeta accompanies delivered; LocationID is always the order's target
type DeliveredMeta struct {
	LocationID uuid.UUID `json:"location_id"`
}

// RefundedMeta accompanies refunded. FromStatus names the bucket the quantity
// left; LocationID or LogisticsOrderID narrows it when that bucket is keyed.
type RefundedMeta struct {
	Reason           string        `json:"reason"`
	FromStatus       ProductStatus `json:"from_status"`
	LocationID       *uuid.UUID    `json:"location_id,omitempty"`
	LogisticsOrderID *uuid.UUID    `json:"logistics_order_id,omitempty"`
	ReturnedToStock  bool          `json:"returned_to_stock,omitempty"`
}

func (WaitingMeta) isEventMeta()   {}
func (ArrivedMeta) isEventMeta()   {}
func (SentMeta) isEventMeta()      {}
func (DeliveredMeta) isEventMeta() {}
func (RefundedMeta) isEventMeta()  {}

// MarshalMeta encodes a metadata variant for the JSONB column
func MarshalMeta(meta EventMeta) ([]byte, error) {
	if meta == nil {
		return nil, fmt.Errorf("event metadata is required")
	}
	return json.Marshal(meta)
}

// UnmarshalMeta decodes the JSONB column into the variant for the status
func UnmarshalMeta(status ProductStatus, data []byte) (EventMeta, error) {
	var (
		meta EventMeta
		err  error
	)

	switch status {
	case StatusWaitingForArrival:
		var m WaitingMeta
		err = json.Unmarshal(data, &m)
		meta = m
	case StatusArrivedInOPP:
		var m ArrivedMeta
		err = json.Unmarshal(data, &m)
		meta = m
	case StatusSentToLogistics:
		var m SentMeta
		err = json.Unmarshal(data, &m)
		meta = m
	case StatusDelivered:
		var m DeliveredMeta
		err = json.Unmarshal(data, &m)
		meta = m
	case StatusRefunded:
		var m RefundedMeta
		err = json.Unmarshal(data, &m)
		meta = m
	default:
		return nil, fmt.Errorf("unknown product status %q", status)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", status, err)
	}
	return meta, nil
}
