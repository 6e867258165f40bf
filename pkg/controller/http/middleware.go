package http

import (
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskmatrix/pkg/usecase"
)

// readyMiddleware rejects requests with 503 until the application shell is READY
func readyMiddleware(app AppUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := app.Initialize(r.Context()); err != nil {
				writeError(r.Context(), w, goerr.Wrap(err, "application is not available",
					goerr.T(usecase.ErrTagServiceUnavailable)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
