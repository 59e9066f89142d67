// Package health provides liveness and readiness handlers for the Accentor
// server.
//
//   - /healthz answers 200 whenever the process serves HTTP.
//   - /readyz answers 200 only while every registered dependency probe
//     passes; a failing store or provider flips it to 503 so load balancers
//     stop routing attempts here.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds each dependency probe per /readyz request.
const probeTimeout = 5 * time.Second

// Probe checks one dependency. Implementations must respect context
// cancellation and return nil while the dependency can serve traffic.
type Probe struct {
	// Name keys the probe's verdict in the JSON response.
	Name string

	// Check runs the probe.
	Check func(ctx context.Context) error
}

// Pinger is implemented by stores that can cheaply verify their backend
// connection. [StoreProbe] adapts it into a [Probe].
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreProbe builds a [Probe] over a store's ping.
func StoreProbe(name string, p Pinger) Probe {
	return Probe{Name: name, Check: p.Ping}
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves the health endpoints. The probe set is fixed at
// construction; safe for concurrent use.
type Handler struct {
	probes []Probe
}

// New returns a [Handler] evaluating the given probes on each /readyz
// request, in order.
func New(probes ...Probe) *Handler {
	h := &Handler{probes: make([]Probe, len(probes))}
	copy(h.probes, probes)
	return h
}

// Register adds both health routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz is the liveness probe. A process that reaches this handler is
// alive, so it unconditionally reports ok.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, http.StatusOK, report{Status: "ok"})
}

// Readyz runs every probe and reports per-dependency verdicts. Any failure
// yields 503 with the failing probes named.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := report{Status: "ok", Checks: make(map[string]string, len(h.probes))}
	status := http.StatusOK

	for _, p := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := p.Check(ctx)
		cancel()

		if err != nil {
			rep.Checks[p.Name] = "fail: " + err.Error()
			rep.Status = "fail"
			status = http.StatusServiceUnavailable
		} else {
			rep.Checks[p.Name] = "ok"
		}
	}

	writeReport(w, status, rep)
}

func writeReport(w http.ResponseWriter, status int, rep report) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
