package orders

import (
	"fmt"

	"mesa/internal/domain"
)

// TransitionPolicy decides whether an order may move between statuses.
type TransitionPolicy func(from, to domain.OrderStatus) error

// Permissive accepts any move between known statuses, including backwards.
func Permissive(_, _ domain.OrderStatus) error {
	return nil
}

// ForwardOnly rejects moves back along the workflow. Skipping ahead and
// repeating the current status are allowed.
func ForwardOnly(from, to domain.OrderStatus) error {
	if to.Rank() < from.Rank() {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatus, from, to)
	}
	return nil
}

// PolicyFor returns ForwardOnly when strict is set and Permissive otherwise.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return ForwardOnly
	}
	return Permissive
}
