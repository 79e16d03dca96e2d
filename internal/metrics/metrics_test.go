package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPurchaseOutcomesCountsPerLabel(t *testing.T) {
	before := testutil.ToFloat64(PurchaseOutcomes.WithLabelValues(OutcomeDeclined))

	PurchaseOutcomes.WithLabelValues(OutcomeDeclined).Inc()
	PurchaseOutcomes.WithLabelValues(OutcomeDeclined).Inc()

	assert.Equal(t, before+2, testutil.ToFloat64(PurchaseOutcomes.WithLabelValues(OutcomeDeclined)))
}

func TestCollectorsAreLintClean(t *testing.T) {
	problems, err := testutil.CollectAndLint(TicketsSold)
	assert.NoError(t, err)
	assert.Empty(t, problems)
}
