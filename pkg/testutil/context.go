package testutil

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// WithURLParams attaches chi route parameters to the request, as the router
// would for a matched pattern such as /runs/{id}.
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
