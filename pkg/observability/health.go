package observability

import (
	"context"
	"encoding/json"
	"net/http"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// ReadyCheck reports whether a subsystem is ready. A nil error means ready.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthHandler serves liveness at /healthz. It always answers 200 {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeHealth(rw, http.StatusOK, map[string]string{"status": healthStatusOK})
	})
}

// ReadyHandler serves readiness at /readyz. Any failing check turns the
// answer into 503 and names the failing subsystem.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			err := check.Check(hr.Context())
			if err != nil {
				writeHealth(rw, http.StatusServiceUnavailable, map[string]string{
					"status": healthStatusUnavailable,
					"check":  check.Name,
				})

				return
			}
		}

		writeHealth(rw, http.StatusOK, map[string]string{"status": healthStatusOK})
	})
}

func writeHealth(rw http.ResponseWriter, code int, body map[string]string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	// The status code is already sent; a failed body write has no one to report to.
	_ = json.NewEncoder(rw).Encode(body)
}
