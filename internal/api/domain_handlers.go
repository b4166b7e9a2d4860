package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/inbound/internal/pkg/httputil"
)

type registerDomainRequest struct {
	Hostname string `json:"hostname"`
}

// RegisterDomain onboards a new domain: POST /api/domains
func (h *Handlers) RegisterDomain(w http.ResponseWriter, r *http.Request) {
	var req registerDomainRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	res, err := h.domains.Register(r.Context(), userID(r), req.Hostname)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.Created(w, res)
}

// ListDomains lists the caller's domains: GET /api/domains?check=true
func (h *Handlers) ListDomains(w http.ResponseWriter, r *http.Request) {
	check := r.URL.Query().Get("check") == "true"
	res, err := h.domains.List(r.Context(), userID(r), check)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"domains": res})
}

// CheckDomain re-verifies one domain: POST /api/domains/{hostname}/check
func (h *Handlers) CheckDomain(w http.ResponseWriter, r *http.Request) {
	res, err := h.domains.Check(r.Context(), userID(r), chi.URLParam(r, "hostname"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, res)
}

// RetryDomain retries a failed domain: POST /api/domains/{hostname}/retry
func (h *Handlers) RetryDomain(w http.ResponseWriter, r *http.Request) {
	res, err := h.domains.Retry(r.Context(), userID(r), chi.URLParam(r, "hostname"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, res)
}

// DomainRecords returns the records the user must publish:
// GET /api/domains/{hostname}/records
func (h *Handlers) DomainRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.domains.Records(r.Context(), userID(r), chi.URLParam(r, "hostname"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"records": records})
}

// PublishRecords writes the required records into the user's hosted zone:
// POST /api/domains/{hostname}/records/publish
func (h *Handlers) PublishRecords(w http.ResponseWriter, r *http.Request) {
	err := h.domains.PublishRecords(r.Context(), userID(r), chi.URLParam(r, "hostname"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"published": true})
}

type catchAllRequest struct {
	Enabled    bool    `json:"enabled"`
	EndpointID *string `json:"endpoint_id,omitempty"`
}

// SetCatchAll flips domain-level catch-all routing:
// PUT /api/domains/{hostname}/catch-all
func (h *Handlers) SetCatchAll(w http.ResponseWriter, r *http.Request) {
	var req catchAllRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	d, err := h.domains.SetCatchAll(r.Context(), userID(r), chi.URLParam(r, "hostname"), req.Enabled, req.EndpointID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.OK(w, d)
}

// DeleteDomain removes an empty domain: DELETE /api/domains/{hostname}
func (h *Handlers) DeleteDomain(w http.ResponseWriter, r *http.Request) {
	if err := h.domains.Delete(r.Context(), userID(r), chi.URLParam(r, "hostname")); err != nil {
		writeServiceError(w, err)
		return
	}
	httputil.NoContent(w)
}
