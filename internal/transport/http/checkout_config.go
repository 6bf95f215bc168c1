package http

import "net/http"

type checkoutConfigResponse struct {
	PublicKey string `json:"public_key"`
	Currency  string `json:"currency"`
}

// HandleCheckoutConfig exposes the gateway public key needed by the client-side
// tokenization widget. Secret keys never pass through here.
func HandleCheckoutConfig(publicKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, checkoutConfigResponse{PublicKey: publicKey, Currency: "jpy"})
	}
}
