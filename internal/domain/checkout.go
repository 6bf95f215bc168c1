package domain

import (
	"regexp"
	"strings"
)

const (
	// PrefectureUnselected is the "please select" entry of the prefecture list.
	PrefectureUnselected = 1
	prefectureMax        = 48
)

var (
	postalCodePattern  = regexp.MustCompile(`^\d{3}-\d{4}$`)
	phoneNumberPattern = regexp.MustCompile(`^\d{10,11}$`)
)

const (
	FieldItemID       = "item_id"
	FieldBuyerID      = "buyer_id"
	FieldPostalCode   = "postal_code"
	FieldPrefectureID = "prefecture_id"
	FieldCity         = "city"
	FieldStreet       = "street"
	FieldPhoneNumber  = "phone_number"
	FieldPaymentToken = "payment_token"

	CodeRequired      = "required"
	CodeInvalidFormat = "invalid_format"
	CodeOutOfRange    = "out_of_range"
)

// CheckoutRequest is the buyer's submitted checkout form plus the card token
// produced by the client-side widget.
type CheckoutRequest struct {
	ItemID       string
	BuyerID      string
	PostalCode   string
	PrefectureID int
	City         string
	Street       string
	Building     string
	PhoneNumber  string
	PaymentToken string
}

// ShippingAddress copies the address fields verbatim for the given order.
func (r CheckoutRequest) ShippingAddress(id, orderID string) ShippingAddress {
	return ShippingAddress{
		ID:           id,
		OrderID:      orderID,
		PostalCode:   r.PostalCode,
		PrefectureID: r.PrefectureID,
		City:         r.City,
		Street:       r.Street,
		Building:     r.Building,
		PhoneNumber:  r.PhoneNumber,
	}
}

// ValidateCheckout checks every field independently and returns all failures.
// It returns nil when the request is valid.
func ValidateCheckout(r CheckoutRequest) FieldErrors {
	errs := make(FieldErrors)

	if strings.TrimSpace(r.ItemID) == "" {
		errs.add(FieldItemID, CodeRequired, "item is required")
	}
	if strings.TrimSpace(r.BuyerID) == "" {
		errs.add(FieldBuyerID, CodeRequired, "buyer is required")
	}

	switch {
	case r.PostalCode == "":
		errs.add(FieldPostalCode, CodeRequired, "postal code is required")
	case !postalCodePattern.MatchString(r.PostalCode):
		errs.add(FieldPostalCode, CodeInvalidFormat, "postal code must look like 123-4567")
	}

	switch {
	case r.PrefectureID == 0 || r.PrefectureID == PrefectureUnselected:
		errs.add(FieldPrefectureID, CodeRequired, "select a prefecture")
	case r.PrefectureID < PrefectureUnselected || r.PrefectureID > prefectureMax:
		errs.add(FieldPrefectureID, CodeOutOfRange, "unknown prefecture")
	}

	if strings.TrimSpace(r.City) == "" {
		errs.add(FieldCity, CodeRequired, "city is required")
	}
	if strings.TrimSpace(r.Street) == "" {
		errs.add(FieldStreet, CodeRequired, "street is required")
	}

	switch {
	case r.PhoneNumber == "":
		errs.add(FieldPhoneNumber, CodeRequired, "phone number is required")
	case !phoneNumberPattern.MatchString(r.PhoneNumber):
		errs.add(FieldPhoneNumber, CodeInvalidFormat, "phone number must be 10 or 11 digits without separators")
	}

	if r.PaymentToken == "" {
		errs.add(FieldPaymentToken, CodeRequired, "enter valid card details")
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}
