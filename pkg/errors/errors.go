package errors

import "fmt"

// ErrNotFound indicates a referenced resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized indicates a failed API key check
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrValidation indicates malformed input rejected before any transaction opens
type ErrValidation struct {
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

// ErrInsufficientStock indicates an order line exceeds a product's available stock
type ErrInsufficientStock struct {
	ProductID string
	Requested int
	Available int
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ErrExceedsWaiting indicates a seller receipt exceeds the line's waiting balance
type ErrExceedsWaiting struct {
	ProductID string
	Requested int
	Waiting   int
}

func (e *ErrExceedsWaiting) Error() string {
	return fmt.Sprintf("receipt exceeds waiting balance for product %s: requested %d, waiting %d",
		e.ProductID, e.Requested, e.Waiting)
}

// ErrInsufficientLocalStock indicates a logistics hand-off exceeds the balance at the source location
type ErrInsufficientLocalStock struct {
	ProductID  string
	LocationID string
	Requested  int
	Available  int
}

func (e *ErrInsufficientLocalStock) Error() string {
	return fmt.Sprintf("hand-off exceeds balance for product %s at location %s: requested %d, available %d",
		e.ProductID, e.LocationID, e.Requested, e.Available)
}

// ErrWrongLocation indicates a delivery attempted at a location other than the order's target
type ErrWrongLocation struct {
	OrderID    string
	LocationID string
	TargetID   string
}

func (e *ErrWrongLocation) Error() string {
	return fmt.Sprintf("order %s cannot be delivered at location %s: target is %s",
		e.OrderID, e.LocationID, e.TargetID)
}

// ErrRejectionExceedsAvailable indicates a buyer rejection larger than the quantity present at the target
type ErrRejectionExceedsAvailable struct {
	ProductID string
	Rejected  int
	Available int
}

func (e *ErrRejectionExceedsAvailable) Error() string {
	return fmt.Sprintf("rejection exceeds available quantity for product %s: rejected %d, available %d",
		e.ProductID, e.Rejected, e.Available)
}

// ErrLogisticsRejected indicates the logistics collaborator refused an operation;
// the surrounding transaction rolls back
type ErrLogisticsRejected struct {
	Operation string
	Err       error
}

func (e *ErrLogisticsRejected) Error() string {
	return fmt.Sprintf("logistics rejected %s: %v", e.Operation, e.Err)
}

func (e *ErrLogisticsRejected) Unwrap() error {
	return e.Err
}

// ErrUnresolvableReturnDestination indicates the return orchestrator could not
// resolve exactly one destination for a seller's returnable quantity
type ErrUnresolvableReturnDestination struct {
	SellerID   string
	Candidates int
}

func (e *ErrUnresolvableReturnDestination) Error() string {
	return fmt.Sprintf("cannot resolve return destination for seller %s: %d candidate locations",
		e.SellerID, e.Candidates)
}
