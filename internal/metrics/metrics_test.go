package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	assert.Equal(t, "success", Result(nil))
	assert.Equal(t, "error", Result(errors.New("boom")))
}

func TestRetrievalStrategyCounter(t *testing.T) {
	before := testutil.ToFloat64(RetrievalStrategy.WithLabelValues("widened"))
	RetrievalStrategy.WithLabelValues("widened").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RetrievalStrategy.WithLabelValues("widened")))
}
