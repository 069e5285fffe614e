package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pawsuite/pawsuite/internal/shared"
)

// ActorID reads the acting user id from the X-Actor-ID header. Zero when
// absent; handlers treat that as the system actor.
func ActorID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return id
}

// ParamInt64 parses a chi URL parameter as a positive int64.
func ParamInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || v <= 0 {
		return 0, shared.Validationf("invalid %s", name)
	}
	return v, nil
}

// QueryInt64 parses an optional integer query parameter, zero when absent.
func QueryInt64(r *http.Request, name string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return v
}

// QueryInt parses an optional integer query parameter, zero when absent.
func QueryInt(r *http.Request, name string) int {
	v, _ := strconv.Atoi(r.URL.Query().Get(name))
	return v
}

// QueryTime parses an optional RFC 3339 or YYYY-MM-DD query parameter.
func QueryTime(r *http.Request, name string) time.Time {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02", raw)
	return t
}
