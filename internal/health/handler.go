package health

import (
	"encoding/json"
	"net/http"
)

// HandlerOption configures a health handler
type HandlerOption func(*handler)

// WithFailureStatus answers with status instead of 200 while the registry is
// failing. The body is unchanged.
func WithFailureStatus(status int) HandlerOption {
	return func(h *handler) {
		h.failureStatus = status
	}
}

// marshal is swapped in tests
var marshal = json.Marshal

type handler struct {
	registry      *Registry
	failureStatus int
}

// Handler serves the registry snapshot as JSON. By default the response
// status is 200 whether or not the registry is healthy; callers read "ok".
func (r *Registry) Handler(opts ...HandlerOption) http.Handler {
	h := &handler{registry: r}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.registry.Snapshot()

	body, err := marshal(snapshot)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if !snapshot.OK && h.failureStatus != 0 {
		status = h.failureStatus
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
