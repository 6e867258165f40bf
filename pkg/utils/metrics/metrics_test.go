package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/secmon-lab/riskmatrix/pkg/domain/types"
	"github.com/secmon-lab/riskmatrix/pkg/utils/metrics"
)

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.SetRiskEntries(14)
	m.ObserveBootstrap(metrics.OutcomeSeeded)
	m.ObserveBootstrap(metrics.OutcomePresent)
	m.ObserveBootstrap(metrics.OutcomePresent)
	m.SetState(types.AppStateReady)

	gt.Value(t, testutil.ToFloat64(m.BootstrapCounter(metrics.OutcomeSeeded))).Equal(1.0)
	gt.Value(t, testutil.ToFloat64(m.BootstrapCounter(metrics.OutcomePresent))).Equal(2.0)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	gt.NoError(t, err).Required()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	gt.NoError(t, err).Required()

	gt.String(t, string(body)).Contains("riskmatrix_risk_entries 14")
	gt.String(t, string(body)).Contains(`riskmatrix_bootstrap_total{outcome="present"} 2`)
	gt.String(t, string(body)).Contains("riskmatrix_app_state 5")
}

func TestNilMetrics(t *testing.T) {
	var m *metrics.Metrics
	m.SetRiskEntries(1)
	m.ObserveBootstrap(metrics.OutcomeFailed)
	m.SetState(types.AppStateFailed)
	gt.Value(t, m.Registry() == nil).Equal(true)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	gt.Value(t, w.Code).Equal(http.StatusNotFound)
}
