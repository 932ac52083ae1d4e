package fsm

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Status constants used by the service request state machine.
const (
	StatusPending    = "pending"
	StatusAccepted   = "accepted"
	StatusRejected   = "rejected"
	StatusOnTheWay   = "on_the_way"
	StatusInProgress = "in_progress"
	StatusDelivered  = "delivered"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Service request types.
const (
	TypeMechanic = "mechanic"
	TypeFuel     = "fuel"
	TypeMedical  = "medical"
	TypeTowing   = "towing"
)

var transitions = map[string]map[string]struct{}{
	StatusPending: {
		StatusAccepted:  {},
		StatusRejected:  {},
		StatusCancelled: {},
	},
	StatusAccepted: {
		StatusOnTheWay:  {},
		StatusCancelled: {},
	},
	StatusOnTheWay: {
		StatusInProgress: {},
		StatusDelivered:  {},
	},
	StatusInProgress: {
		StatusCompleted: {},
	},
	StatusRejected:  {},
	StatusCancelled: {},
	StatusCompleted: {},
	StatusDelivered: {},
}

// CanTransition returns whether a request can move from the current status to
// the target status. Self-transitions are not edges: re-applying the current
// status is rejected, which keeps terminal requests terminal.
func CanTransition(from, to string) bool {
	allowed, ok := transitions[from]
	if !ok {
		return false
	}
	_, ok = allowed[to]
	return ok
}

// IsTerminal reports whether the status has no outgoing edges.
func IsTerminal(status string) bool {
	allowed, ok := transitions[status]
	return ok && len(allowed) == 0
}

// KnownStatus reports whether the status is part of the state machine.
func KnownStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

// KnownType reports whether t is a supported request type.
func KnownType(t string) bool {
	switch t {
	case TypeMechanic, TypeFuel, TypeMedical, TypeTowing:
		return true
	}
	return false
}

// AllowedTarget checks type-specific edges: in_progress exists only for
// in-person service types, delivered only for fuel delivery.
func AllowedTarget(requestType, to string) bool {
	switch to {
	case StatusInProgress:
		return requestType != TypeFuel
	case StatusDelivered:
		return requestType == TypeFuel
	}
	return true
}

// Apply updates a request status inside tx using optimistic validation: the
// UPDATE matches the expected current status, so a concurrent writer makes
// the statement touch zero rows.
func Apply(ctx context.Context, tx *sql.Tx, requestID, fromStatus, toStatus string, at time.Time) error {
	if !CanTransition(fromStatus, toStatus) {
		return errors.New("invalid status transition")
	}
	res, err := tx.ExecContext(ctx, `UPDATE service_requests SET status = ?, updated_at = ? WHERE id = ? AND status = ?`, toStatus, at, requestID, fromStatus)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
