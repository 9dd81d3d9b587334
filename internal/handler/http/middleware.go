package http

import (
	"net/http"
	"strings"

	"github.com/thuannguyen2034/food-market-sub000/pkg/httputil"
	"github.com/thuannguyen2034/food-market-sub000/pkg/middleware"
)

// CORS applies the default cross-origin policy.
var CORS = middleware.CORS(middleware.DefaultCORSConfig())

// ContentTypeJSON rejects mutating requests whose body is not JSON.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
