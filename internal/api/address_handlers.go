package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/inbound/internal/pkg/httputil"
	"github.com/ignite/inbound/internal/service/routing"
)

// CreateAddress adds a recipient address: POST /api/addresses
func (h *Handlers) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var req routing.CreateAddressInput
	if !httputil.Decode(w, r, &req) {
		return
	}
	res, err := h.routing.CreateAddress(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, res)
}

// ListAddresses lists the addresses on a domain:
// GET /api/domains/{hostname}/addresses
func (h *Handlers) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.routing.ListAddresses(r.Context(), userID(r), chi.URLParam(r, "hostname"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"addresses": addrs})
}

// ResyncDomain forces receipt rule reconciliation:
// POST /api/domains/{hostname}/resync
func (h *Handlers) ResyncDomain(w http.ResponseWriter, r *http.Request) {
	res, err := h.routing.Resync(r.Context(), userID(r), chi.URLParam(r, "hostname"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, res)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetAddressActive toggles an address: PUT /api/addresses/{address}/active
func (h *Handlers) SetAddressActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	res, err := h.routing.SetActive(r.Context(), userID(r), chi.URLParam(r, "address"), req.Active)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, res)
}

type setTargetRequest struct {
	EndpointID *string `json:"endpoint_id,omitempty"`
	WebhookID  *string `json:"webhook_id,omitempty"`
}

// SetAddressTarget replaces the routing target:
// PUT /api/addresses/{address}/target
func (h *Handlers) SetAddressTarget(w http.ResponseWriter, r *http.Request) {
	var req setTargetRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	a, err := h.routing.SetTarget(r.Context(), userID(r), chi.URLParam(r, "address"), req.EndpointID, req.WebhookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, a)
}

// DeleteAddress removes an address: DELETE /api/addresses/{address}
func (h *Handlers) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	res, err := h.routing.DeleteAddress(r.Context(), userID(r), chi.URLParam(r, "address"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, res)
}

// ResolveRoute maps an inbound recipient to its delivery target:
// GET /api/routes/resolve?recipient=a@example.com
// Called by the message processing pipeline, not end users.
func (h *Handlers) ResolveRoute(w http.ResponseWriter, r *http.Request) {
	recipient := r.URL.Query().Get("recipient")
	if recipient == "" {
		httputil.BadRequest(w, "recipient is required")
		return
	}
	route, err := h.routing.ResolveRoute(r.Context(), recipient)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, route)
}
