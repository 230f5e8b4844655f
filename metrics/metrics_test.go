package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/zamt/core"
)

func TestCollector_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.Observe(core.Transition{Module: "web", From: core.StateConstructed, To: core.StateInitializing})
	c.Observe(core.Transition{Module: "web", From: core.StateInitializing, To: core.StateInitialized, Duration: 20 * time.Millisecond})
	c.Observe(core.Transition{Module: "db", From: core.StateInitializing, To: core.StateFailed, Err: errors.New("boom")})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues("web", "Initialized")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.state.WithLabelValues("web", "Initializing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.state.WithLabelValues("db", "Failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("db")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg)
	require.NoError(t, err)

	_, err = NewCollector(reg)
	var are prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &are)
}

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.Observe(core.Transition{Module: "web", From: core.StateInitialized, To: core.StateRunning})

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `zamt_module_state{module="web",state="Running"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
