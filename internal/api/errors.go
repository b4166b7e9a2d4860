package api

import (
	"errors"
	"net/http"

	"github.com/ignite/inbound/internal/domain"
	"github.com/ignite/inbound/internal/pkg/httputil"
	"github.com/ignite/inbound/internal/service/domains"
	"github.com/ignite/inbound/internal/service/routing"
)

// writeServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognized is a 500 with the detail kept server-side.
func writeServiceError(w http.ResponseWriter, err error) {
	var conflict *domains.ConflictError
	if errors.As(err, &conflict) {
		httputil.JSON(w, http.StatusConflict, httputil.ErrorResponse{
			Error: conflict.Error(),
			Code:  "dns_conflict",
		})
		return
	}
	var invalid *domain.ValidationError
	if errors.As(err, &invalid) {
		httputil.BadRequest(w, invalid.Error())
		return
	}

	switch {
	case errors.Is(err, domains.ErrNotFound),
		errors.Is(err, routing.ErrNotFound),
		errors.Is(err, routing.ErrDomainNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, domains.ErrDomainExists),
		errors.Is(err, routing.ErrAddressExists):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domains.ErrHasAddresses):
		httputil.Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, domains.ErrNotRetryable),
		errors.Is(err, domains.ErrMissingEndpoint),
		errors.Is(err, domains.ErrEndpointNotOwned),
		errors.Is(err, routing.ErrBothTargets),
		errors.Is(err, routing.ErrEndpointNotOwned),
		errors.Is(err, routing.ErrWebhookNotOwned):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, routing.ErrNoRoute):
		httputil.NotFound(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
