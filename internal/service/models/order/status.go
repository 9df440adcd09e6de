package order

// Status is the top-level order status. It advances as the packages of the
// order move through their own state machines:
// Created -> Paid|COD -> Confirmed -> Delivered -> Completed, with
// Created -> Expired and any cancellable state -> Cancelled.
type Status string

const (
	StatusCreated   Status = "created"
	StatusPaid      Status = "paid"
	StatusCOD       Status = "cod"
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}

	return false
}

// IsCancellable reports whether the order may still be cancelled.
func (s Status) IsCancellable() bool {
	switch s {
	case StatusCreated, StatusPaid, StatusCOD, StatusConfirmed:
		return true
	}

	return false
}

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusCreated, StatusPaid, StatusCOD, StatusConfirmed,
		StatusDelivered, StatusCompleted, StatusCancelled, StatusExpired:
		return Status(s), true
	}

	return "", false
}
