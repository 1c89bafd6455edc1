package keyfetch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/coventry/RSADonations/pkg/crypto/rsakey"
	"github.com/coventry/RSADonations/pkg/logger"
)

// KeySource looks up a domain's key
type KeySource interface {
	Fetch(ctx context.Context, domain string) (*ServerKey, error)
}

type routes struct {
	source   KeySource
	log      *logger.Logger
	throttle *clientThrottle
}

// RouterOption configures NewRouter
type RouterOption func(*routes)

// WithRateLimit allows perSecond lookups per client address, with bursts of
// twice that. Zero disables limiting.
func WithRateLimit(perSecond int) RouterOption {
	return func(rt *routes) {
		if perSecond > 0 {
			rt.throttle = newClientThrottle(perSecond)
		}
	}
}

// NewRouter serves GET /ssl_key/{domain}
func NewRouter(source KeySource, log *logger.Logger, opts ...RouterOption) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	rt := &routes{source: source, log: log}
	for _, opt := range opts {
		opt(rt)
	}

	r := chi.NewRouter()
	if rt.throttle != nil {
		r.Use(rt.throttle.middleware)
	}
	r.Get("/ssl_key/{domain}", rt.sslKey)
	return r
}

func (rt *routes) sslKey(w http.ResponseWriter, r *http.Request) {
	domain := strings.TrimSpace(chi.URLParam(r, "domain"))

	key, err := rt.source.Fetch(r.Context(), domain)
	if err != nil {
		status := statusFor(err)
		rt.log.WarnEvent().
			Str("domain", domain).
			Int("status", status).
			Err(err).
			Msg("Key fetch failed")
		writeJSONError(w, status, err)
		return
	}

	rt.log.InfoEvent().
		Str("domain", domain).
		Int("size", key.Size).
		Hash("key_hash", key.KeyHash()).
		Msg("Fetched server key")
	writeJSON(w, http.StatusOK, key)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrInvalidDomain):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotRSA), errors.Is(err, rsakey.ErrUnsupportedSize):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
