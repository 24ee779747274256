package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/technosupport/society-watch/internal/ingest"
)

// maxWebhookBody bounds a single delivery at 4 MiB.
const maxWebhookBody = 4 << 20

// WebhookHandler receives vendor event deliveries. The contract with
// upstream senders is lenient on purpose: the body may be a JSON array or
// a single object, unknown fields are kept as metadata, and the response
// is 200 even when some records were skipped, so vendors do not retry
// payloads that will never parse better.
type WebhookHandler struct {
	Ingest *ingest.Service

	// Secret returns the current shared HMAC secret; empty disables
	// signature checks. A func so config reloads take effect live.
	Secret func() string
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if h.Secret != nil {
		if secret := h.Secret(); secret != "" && !verifySignature(body, secret, r.Header.Get("X-Signature")) {
			respondError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	raws, err := decodeDelivery(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "body must be a JSON object or array of objects")
		return
	}

	res := h.Ingest.ProcessBatch(r.Context(), raws)
	if res.Skipped > 0 || res.Failed > 0 {
		log.Printf("[webhook] partial batch received=%d stored=%d skipped=%d duplicates=%d failed=%d",
			res.Received, res.Stored, res.Skipped, res.Duplicates, res.Failed)
	}

	respondJSON(w, http.StatusOK, map[string]int{"received": res.Stored})
}

// decodeDelivery accepts `[{...}, ...]` or a bare `{...}`.
func decodeDelivery(body []byte) ([]map[string]any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var raws []map[string]any
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, err
		}
		return raws, nil
	}
	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	return []map[string]any{raw}, nil
}

// verifySignature checks an HMAC-SHA256 hex digest of the raw body.
func verifySignature(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(signature))
}
