package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr memetakan taksonomi error core ke kode HTTP.
func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch checkout.Kind(err) {
	case checkout.KindNotFound:
		code = http.StatusNotFound
	case checkout.KindValidation:
		code = http.StatusBadRequest
	case checkout.KindAuthorization:
		code = http.StatusForbidden
	case checkout.KindConflict:
		code = http.StatusConflict
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

// Identity datang dari gateway auth (di luar scope) via header, bukan dari
// state ambient; semua operasi core menerima user id eksplisit.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-Id")
	if id == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing identity"})
		return "", false
	}
	return id, true
}
