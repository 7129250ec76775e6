package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"trueneutral/internal/domain"
)

func TestQueryOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "ok"},
		{"invalid", &domain.InvalidQueryError{Reason: "empty"}, "invalid"},
		{"unknown title wrapped", fmt.Errorf("query: %w", &domain.UnknownTitleError{Title: "x"}), "unknown_title"},
		{"other", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryOutcome(tt.err))
		})
	}
}

func TestRecordQuery(t *testing.T) {
	before := testutil.ToFloat64(QueriesTotal.WithLabelValues("test", "invalid"))
	RecordQuery("test", time.Millisecond, &domain.InvalidQueryError{Reason: "empty"})
	after := testutil.ToFloat64(QueriesTotal.WithLabelValues("test", "invalid"))
	assert.Equal(t, before+1, after)
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test", "404"))
	RecordAPIRequest("GET", "/test", 404, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/test", "404")))
}

func TestRecordFetch(t *testing.T) {
	before := testutil.ToFloat64(ScrapeFetchesTotal.WithLabelValues("cached"))
	RecordFetch("cached", 0)
	assert.Equal(t, before+1, testutil.ToFloat64(ScrapeFetchesTotal.WithLabelValues("cached")))
}
