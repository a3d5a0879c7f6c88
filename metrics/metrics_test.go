package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_ServesCollectors(t *testing.T) {
	EventsHandled.WithLabelValues("reaction_add", "ok").Inc()
	MirrorOperations.WithLabelValues("create", "ok").Inc()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "starboard_events_handled_total"))
	assert.True(t, strings.Contains(body, "starboard_mirror_operations_total"))
}

func TestRouter_Healthz(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCacheLookups_Counts(t *testing.T) {
	base := testutil.ToFloat64(CacheLookups.WithLabelValues("guild", "hit"))
	CacheLookups.WithLabelValues("guild", "hit").Inc()
	assert.Equal(t, base+1, testutil.ToFloat64(CacheLookups.WithLabelValues("guild", "hit")))
}
