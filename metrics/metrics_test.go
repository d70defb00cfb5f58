package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_Counts_Requests_By_Route_Pattern(t *testing.T) {
	req := require.New(t)
	router := chi.NewRouter()
	router.Use(Middleware)
	router.Get("/groups/{groupID}/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/groups/{groupID}/messages", "418"))

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/groups/"+id+"/messages", nil))
		req.Equal(http.StatusTeapot, rec.Code)
	}

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/groups/{groupID}/messages", "418"))
	req.Equal(2.0, after-before)
}
