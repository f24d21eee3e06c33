package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/foodcourt/internal/domain/auth"
)

// HeaderAPIKey carries the administrative API key.
const HeaderAPIKey = "api_key"

var errForbidden = errors.New("api key lacks the admin scope")

// requireAdmin authenticates the api_key header and requires the admin scope.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		info, err := h.auth.Authenticate(ctx, r.Header.Get(HeaderAPIKey))
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		if !info.HasScope(auth.ScopeAdmin) {
			zctx.From(ctx).Warn("API key without admin scope", zap.String("key", info.Name))
			h.respondError(w, r, errForbidden)
			return
		}
		next(w, r)
	})
}
