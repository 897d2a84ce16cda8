package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"peerprep/questiongen/internal/models"
)

func TestRecordExtraction(t *testing.T) {
	counter := extractions.WithLabelValues("challenge", "fallback")
	before := testutil.ToFloat64(counter)

	RecordExtraction(models.KindChallenge, models.OutcomeFallback)
	RecordExtraction(models.KindChallenge, models.OutcomeFallback)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Fatalf("expected 2 new fallback extractions, got %v", got)
	}
}

func TestRecordRefusal(t *testing.T) {
	before := testutil.ToFloat64(refusals)
	RecordRefusal()
	if got := testutil.ToFloat64(refusals) - before; got != 1 {
		t.Fatalf("expected one refusal, got %v", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/questions/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := httpRequests.WithLabelValues(http.MethodGet, "/questions/{id}", "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b", "c"} {
		req := httptest.NewRequest(http.MethodGet, "/questions/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Fatalf("expected 3 requests under the route pattern, got %v", got)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	ObserveGeneration(models.KindMCQ, 1500*time.Millisecond)
	RecordExtraction(models.KindMCQ, models.OutcomeClean)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, name := range []string{"questiongen_extractions_total", "questiongen_generation_duration_seconds"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}
