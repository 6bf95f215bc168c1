package domain

import "errors"

type Outcome string

const (
	OutcomePlaced           Outcome = "placed"
	OutcomeItemNotFound     Outcome = "item_not_found"
	OutcomeForbidden        Outcome = "forbidden"
	OutcomeAlreadySold      Outcome = "already_sold"
	OutcomeValidationFailed Outcome = "validation_failed"
	OutcomePaymentFailed    Outcome = "payment_failed"
	OutcomeOrderConflict    Outcome = "order_conflict"
	OutcomeStoreUnavailable Outcome = "store_unavailable"
)

// OutcomeOf classifies a PlaceOrder error; nil means the order was placed.
func OutcomeOf(err error) Outcome {
	var (
		validationErr *ValidationError
		paymentErr    *PaymentError
	)
	switch {
	case err == nil:
		return OutcomePlaced
	case errors.Is(err, ErrOrderConflict):
		return OutcomeOrderConflict
	case errors.Is(err, ErrItemNotFound):
		return OutcomeItemNotFound
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, ErrAlreadySold):
		return OutcomeAlreadySold
	case errors.As(err, &validationErr):
		return OutcomeValidationFailed
	case errors.As(err, &paymentErr):
		return OutcomePaymentFailed
	default:
		return OutcomeStoreUnavailable
	}
}
