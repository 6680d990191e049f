package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetricFamily は収集結果から指定名のメトリクスファミリーを探す。
func findMetricFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// labelValue はメトリクスから指定ラベルの値を返す。
func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordBackendCall_IncrementsCounterPerLabel は操作・結果ラベルごとにカウントされることを検証する。
func TestRecordBackendCall_IncrementsCounterPerLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBackendCall("login", OutcomeSuccess)
	c.RecordBackendCall("login", OutcomeSuccess)
	c.RecordBackendCall("login", OutcomeRejected)

	mf := findMetricFamily(t, reg, "boardman_backend_calls_total")
	if mf == nil {
		t.Fatal("boardman_backend_calls_total metric not found")
	}
	if len(mf.GetMetric()) != 2 {
		t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
	}
	for _, m := range mf.GetMetric() {
		val := m.GetCounter().GetValue()
		switch labelValue(m, "outcome") {
		case OutcomeSuccess:
			if val != 2 {
				t.Errorf("success count = %v, want 2", val)
			}
		case OutcomeRejected:
			if val != 1 {
				t.Errorf("rejected count = %v, want 1", val)
			}
		default:
			t.Errorf("unexpected outcome label %q", labelValue(m, "outcome"))
		}
	}
}

// TestRecordBackendLatency_ObservesHistogram はレイテンシがヒストグラムに記録されることを検証する。
func TestRecordBackendLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordBackendLatency("create_user", 120*time.Millisecond)

	mf := findMetricFamily(t, reg, "boardman_backend_latency_seconds")
	if mf == nil {
		t.Fatal("boardman_backend_latency_seconds metric not found")
	}
	h := mf.GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 1 {
		t.Errorf("sample count = %d, want 1", h.GetSampleCount())
	}
	if h.GetSampleSum() < 0.11 || h.GetSampleSum() > 0.13 {
		t.Errorf("sample sum = %v, want ~0.12", h.GetSampleSum())
	}
}

// TestRecordProvisioning_CountsByProvider はプロバイダーごとに自動作成数が記録されることを検証する。
func TestRecordProvisioning_CountsByProvider(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordProvisioning("github")

	mf := findMetricFamily(t, reg, "boardman_oauth_provisioned_total")
	if mf == nil {
		t.Fatal("boardman_oauth_provisioned_total metric not found")
	}
	m := mf.GetMetric()[0]
	if labelValue(m, "provider") != "github" {
		t.Errorf("provider label = %q, want github", labelValue(m, "provider"))
	}
	if m.GetCounter().GetValue() != 1 {
		t.Errorf("provisioned = %v, want 1", m.GetCounter().GetValue())
	}
}

// TestRecordSignInAndRefresh_Registered はサインインと再発行のメトリクスが登録されることを検証する。
func TestRecordSignInAndRefresh_Registered(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordSignIn("credentials", OutcomeRejected)
	c.RecordSessionRefresh(OutcomeSuccess)
	c.RecordHTTPStatus(422)

	for _, name := range []string{
		"boardman_sign_in_total",
		"boardman_session_refresh_total",
		"boardman_http_status_total",
	} {
		if findMetricFamily(t, reg, name) == nil {
			t.Errorf("%s metric not found", name)
		}
	}
}

// TestNop_DoesNotPanic はNopコレクターが安全に呼び出せることを検証する。
func TestNop_DoesNotPanic(t *testing.T) {
	var c MetricsCollector = Nop{}
	c.RecordBackendCall("login", OutcomeSuccess)
	c.RecordBackendLatency("login", time.Second)
	c.RecordSignIn("oauth", OutcomeSuccess)
	c.RecordProvisioning("kakao")
	c.RecordSessionRefresh(OutcomeTransport)
	c.RecordHTTPStatus(200)
}
