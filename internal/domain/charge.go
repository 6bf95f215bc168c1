package domain

type ChargeStatus string

const (
	ChargeCaptured    ChargeStatus = "captured"
	ChargeRejected    ChargeStatus = "rejected"
	ChargeUnavailable ChargeStatus = "unavailable"
)

// ChargeResult is the classified response of a single gateway call.
type ChargeResult struct {
	Status   ChargeStatus
	ChargeID string
	// Reason is the gateway's user-facing decline reason (rejected only).
	Reason string
	// Err keeps transport or envelope detail for server-side diagnostics.
	Err error
}

func Captured(chargeID string) ChargeResult {
	return ChargeResult{Status: ChargeCaptured, ChargeID: chargeID}
}

func Rejected(reason string, err error) ChargeResult {
	return ChargeResult{Status: ChargeRejected, Reason: reason, Err: err}
}

func Unavailable(err error) ChargeResult {
	return ChargeResult{Status: ChargeUnavailable, Err: err}
}

// MaskToken keeps enough of a payment token to correlate log lines.
func MaskToken(token string) string {
	const keep = 8
	if len(token) <= keep {
		return "****"
	}
	return token[:keep] + "****"
}
