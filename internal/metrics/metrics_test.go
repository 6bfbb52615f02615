package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	m := &dto.Metric{}
	if err := cv.WithLabelValues(labels...).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func TestRecordLogin(t *testing.T) {
	before := getCounterValue(LoginsTotal, "success")
	RecordLogin("success")
	RecordLogin("success")
	assert.Equal(t, before+2, getCounterValue(LoginsTotal, "success"))
}

func TestRecordRefreshByOutcome(t *testing.T) {
	beforeOK := getCounterValue(RefreshesTotal, "success")
	beforeReuse := getCounterValue(RefreshesTotal, "mismatch")
	RecordRefresh("mismatch")
	assert.Equal(t, beforeOK, getCounterValue(RefreshesTotal, "success"))
	assert.Equal(t, beforeReuse+1, getCounterValue(RefreshesTotal, "mismatch"))
}

func TestRecordLogout(t *testing.T) {
	m := &dto.Metric{}
	_ = LogoutsTotal.Write(m)
	before := m.GetCounter().GetValue()

	RecordLogout()

	m = &dto.Metric{}
	_ = LogoutsTotal.Write(m)
	assert.Equal(t, before+1, m.GetCounter().GetValue())
}

func TestGateAndRoleCounters(t *testing.T) {
	beforeGate := getCounterValue(GateRejectionsTotal, "expired")
	beforeRole := getCounterValue(RoleDenialsTotal, "/api/v2/users/get_all_users")
	RecordGateRejection("expired")
	RecordRoleDenial("/api/v2/users/get_all_users")
	assert.Equal(t, beforeGate+1, getCounterValue(GateRejectionsTotal, "expired"))
	assert.Equal(t, beforeRole+1, getCounterValue(RoleDenialsTotal, "/api/v2/users/get_all_users"))
}
