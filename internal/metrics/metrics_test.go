package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) []*dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()
		}
	}
	t.Fatalf("metric %s not found", name)
	return nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestRecordHTTPRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest(http.MethodGet, "/api/v1/video/{videoId}", http.StatusOK, 20*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/v1/video/{videoId}", http.StatusOK, 30*time.Millisecond)
	c.RecordHTTPRequest(http.MethodGet, "/api/v1/video/{videoId}", http.StatusNotFound, time.Millisecond)

	metrics := gather(t, reg, "ytbackend_http_requests_total")
	if len(metrics) != 2 {
		t.Fatalf("expected 2 label sets, got %d", len(metrics))
	}
	for _, m := range metrics {
		want := 2.0
		if labelValue(m, "status") == "404" {
			want = 1
		}
		if got := m.GetCounter().GetValue(); got != want {
			t.Fatalf("status %s: expected %v got %v", labelValue(m, "status"), want, got)
		}
	}

	hist := gather(t, reg, "ytbackend_http_request_duration_seconds")
	if got := hist[0].GetHistogram().GetSampleCount(); got != 3 {
		t.Fatalf("expected 3 latency samples, got %d", got)
	}
}

func TestRecordToggleAndCascade(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordToggle("video_like", true)
	c.RecordToggle("video_like", false)
	c.RecordToggle("video_like", true)
	c.RecordCascade("video", 5)
	c.RecordCascade("video", 2)

	for _, m := range gather(t, reg, "ytbackend_toggles_total") {
		want := 2.0
		if labelValue(m, "state") == "off" {
			want = 1
		}
		if got := m.GetCounter().GetValue(); got != want {
			t.Fatalf("state %s: expected %v got %v", labelValue(m, "state"), want, got)
		}
	}

	if got := gather(t, reg, "ytbackend_cascade_deletes_total")[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("expected 2 cascades, got %v", got)
	}
	if got := gather(t, reg, "ytbackend_cascade_rows_total")[0].GetCounter().GetValue(); got != 7 {
		t.Fatalf("expected 7 cascade rows, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordMediaDeletion("deleted")
	c.RecordUpload("videoFile", 1024)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"ytbackend_media_deletions_total", "ytbackend_upload_bytes_total"} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("expected %s in scrape output", name)
		}
	}
}
