package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInit_Idempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Init()
		Init()
	})
}

func TestLedgerCounter(t *testing.T) {
	before := testutil.ToFloat64(LedgerOpsTotal.WithLabelValues("lock", "ok"))
	LedgerOpsTotal.WithLabelValues("lock", "ok").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(LedgerOpsTotal.WithLabelValues("lock", "ok")))
}
