package orderpackage

// Status is the per-vendor package status. Transitions only move forward:
// Pending -> Confirmed -> ReadyToShip -> Shipped -> Delivered -> Completed,
// with Pending/Confirmed -> Rejected and any cancellable state -> Cancelled.
type Status string

const (
	StatusPending     Status = "pending"
	StatusConfirmed   Status = "confirmed"
	StatusReadyToShip Status = "ready_to_ship"
	StatusShipped     Status = "shipped"
	StatusDelivered   Status = "delivered"
	StatusCompleted   Status = "completed"
	StatusRejected    Status = "rejected"
	StatusCancelled   Status = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}

	return false
}

// IsCancellable reports whether the package may still be cancelled. Once the
// parcel is handed to the carrier, cancellation is no longer possible.
func (s Status) IsCancellable() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusReadyToShip:
		return true
	}

	return false
}

// IsRejectable reports whether the seller may still reject the package.
func (s Status) IsRejectable() bool {
	return s == StatusPending || s == StatusConfirmed
}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusConfirmed, StatusReadyToShip, StatusShipped,
		StatusDelivered, StatusCompleted, StatusRejected, StatusCancelled:
		return Status(s), true
	}

	return "", false
}
