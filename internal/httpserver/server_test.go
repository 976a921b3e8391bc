package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/retailops/ims-analytics/internal/config"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// newTestServer serves a small CSV dataset out of a temp directory.
func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	writeFixture(t, dir, "orders.csv",
		"order_id,order_date,channel,payment_method,product_code,product_name,grade,weight_class,is_set,is_event,quantity,paid_amount,supply_cost\n"+
			"O1,2024-05-01,web,card,P1,Hanwoo Set,premium,1kg,1,0,2,100000,30000\n"+
			"O2,2024-05-02,app,bank,P2,Pork Belly,standard,500g,0,1,1,25000,8000\n"+
			"O3,2024-05-02,web,card,P1,Hanwoo Set,premium,1kg,1,0,1,50000,30000\n")
	writeFixture(t, dir, "orders_clustered.csv",
		"order_id,order_date,channel,payment_method,product_code,product_name,quantity,paid_amount,cluster\n"+
			"O1,2024-05-01,web,card,P1,Hanwoo Set,2,100000,1\n"+
			"O2,2024-05-02,app,bank,P2,Pork Belly,1,25000,0\n"+
			"O3,2024-05-02,web,card,P1,Hanwoo Set,1,50000,1\n")
	writeFixture(t, dir, "event_stats.csv",
		"date,page_views,dau_members,revisit_rate_pct\n"+
			"2024-05-01,1200,300,21.5\n2024-05-02,1500,340,23.0\n")
	writeFixture(t, dir, "page_stats.csv", "title,views\nHome,900\nBest Sellers,1200\n")
	writeFixture(t, dir, "click_stats.csv",
		"date,product_name,views,clicks\n2024-05-01,Hanwoo Set,1000,45\n2024-05-01,Pork Belly,800,12\n")
	writeFixture(t, dir, "cluster_channels.csv", "cluster,web,app\n0,60.0,40.0\n1,25.0,75.0\n")
	writeFixture(t, dir, "product_efficiency.csv",
		"product_code,product_name,ctr_pct,rpc,rpv,view_count,revenue,supply_cost\n"+
			"P1,Hanwoo Set,4.5,2200,99,1000,150000,30000\n"+
			"P2,Pork Belly,1.5,2080,31,800,25000,8000\n")

	cfg := &config.Config{
		Data:   config.DataConfig{Source: config.SourceCSV, Dir: dir},
		Report: config.ReportConfig{CacheTTL: time.Hour},
	}
	return NewServer(&Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
	})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestServer_Health(t *testing.T) {
	rec := get(t, newTestServer(t), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_Summary(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		TotalOrders  int     `json:"total_orders"`
		TotalRevenue float64 `json:"total_revenue"`
		TopPage      string  `json:"top_page"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 3, body.TotalOrders)
	assert.InDelta(t, 175000, body.TotalRevenue, 1e-9)
	assert.Equal(t, "Best Sellers", body.TopPage)
}

func TestServer_DailySales(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/daily-sales")
	require.Equal(t, http.StatusOK, rec.Code)

	var points []struct {
		Orders  int     `json:"orders"`
		Revenue float64 `json:"revenue"`
	}
	decode(t, rec, &points)
	require.Len(t, points, 2)
	assert.Equal(t, 1, points[0].Orders)
	assert.InDelta(t, 75000, points[1].Revenue, 1e-9)
}

func TestServer_AnomalyStatus(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/anomaly")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "NORMAL", body.Status)
}

func TestServer_ForecastValidatesHorizon(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/api/forecast?horizon=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Horizon  int `json:"horizon"`
		Forecast []struct {
			Date string `json:"date"`
		} `json:"forecast"`
	}
	decode(t, rec, &body)
	assert.Equal(t, 3, body.Horizon)
	require.Len(t, body.Forecast, 3)
	assert.True(t, strings.HasPrefix(body.Forecast[0].Date, "2024-05-03"))

	rec = get(t, h, "/api/forecast?horizon=0")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = get(t, h, "/api/forecast?horizon=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SimulatePost(t *testing.T) {
	h := newTestServer(t)

	payload := `{"pv_pct_delta":10,"ctr_pp_delta":0.5,"cvr_pp_delta":0}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/simulate", bytes.NewBufferString(payload)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Result struct {
			SimPV       float64 `json:"sim_pv"`
			RevenueDiff float64 `json:"revenue_diff"`
		} `json:"result"`
	}
	decode(t, rec, &body)
	assert.InDelta(t, 2970, body.Result.SimPV, 1e-9)
	assert.Greater(t, body.Result.RevenueDiff, 0.0)

	// GET is rejected.
	rec = get(t, h, "/api/simulate")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_SimulateRejectsNegativeRates(t *testing.T) {
	h := newTestServer(t)

	payload := `{"pv_pct_delta":0,"ctr_pp_delta":-99,"cvr_pp_delta":0}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/simulate", bytes.NewBufferString(payload)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Insights(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/insights")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Findings []struct {
			Rule    string `json:"rule"`
			Channel string `json:"channel"`
		} `json:"findings"`
	}
	decode(t, rec, &body)
	require.NotEmpty(t, body.Findings)
	last := body.Findings[len(body.Findings)-1]
	assert.Equal(t, "top-channel", last.Rule)
	assert.Equal(t, "web", last.Channel)
}

func TestServer_Pricing(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/pricing")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Suggestions []struct {
			ProductCode string `json:"product_code"`
			Action      string `json:"action"`
		} `json:"suggestions"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Suggestions, 2)
}

func TestServer_LTVUnavailable(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/ltv")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Available bool `json:"available"`
	}
	decode(t, rec, &body)
	assert.False(t, body.Available)
}

func TestServer_AttributionUnavailable(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/attribution")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Available bool `json:"available"`
	}
	decode(t, rec, &body)
	assert.False(t, body.Available)
}

func TestServer_Clusters(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/clusters")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Clusters []struct {
			Cluster int `json:"cluster"`
			Orders  int `json:"orders"`
		} `json:"clusters"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Clusters, 2)
	assert.Equal(t, 2, body.Clusters[1].Orders)
}

func TestServer_ManagementReportDownload(t *testing.T) {
	rec := get(t, newTestServer(t), "/reports/management")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "management_report_")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	assert.Len(t, f.GetSheetList(), 3)
}

func TestServer_DatasetMissingIs503(t *testing.T) {
	cfg := &config.Config{
		Data:   config.DataConfig{Source: config.SourceCSV, Dir: t.TempDir()},
		Report: config.ReportConfig{CacheTTL: time.Hour},
	}
	h := NewServer(&Dependencies{Config: cfg, Logger: zap.NewNop()})

	rec := get(t, h, "/api/summary")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
