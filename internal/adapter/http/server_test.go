package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpadapter "github.com/couchcryptid/cems-etl/internal/adapter/http"
	"github.com/couchcryptid/cems-etl/internal/domain"
	"github.com/couchcryptid/cems-etl/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func ptr[T any](v T) *T { return &v }

func testStore() *store.Store {
	h5 := time.Date(2016, 1, 1, 5, 0, 0, 0, time.UTC)
	h6 := h5.Add(time.Hour)
	rows := []domain.EmissionRow{
		{ORISPL: 602, UnitID: ptr("1"), FacilityName: ptr("Brandon Shores"), SO2Lbs: ptr(10.0), Latitude: ptr(39.18), Longitude: ptr(-76.54), Time: &h5},
		{ORISPL: 602, UnitID: ptr("2"), FacilityName: ptr("Brandon Shores"), SO2Lbs: ptr(5.0), Latitude: ptr(39.18), Longitude: ptr(-76.54), Time: &h5},
		{ORISPL: 1552, UnitID: ptr("1"), FacilityName: ptr("C P Crane"), SO2Lbs: ptr(3.0), Latitude: ptr(39.33), Longitude: ptr(-76.37), Time: &h6},
	}
	st := store.New()
	st.Append(&store.Batch{
		Source:  "2016md01.zip",
		Columns: []string{domain.ColTimeLocal, domain.ColORISPL, domain.ColUnitID, domain.ColSO2Lbs, domain.ColLatitude, domain.ColLongitude, domain.ColTime},
		Rows:    rows,
	})
	return st
}

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, testStore(), map[int]float64{602: 213.36}, slog.Default())
}

func get(t *testing.T, srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestLoadsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil), "/loads")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []store.LoadRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "2016md01.zip", body[0].Source)
	assert.Equal(t, 3, body[0].Rows)
}

func TestFacilitiesEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil), "/facilities")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []struct {
		ORISPL      int      `json:"orispl_code"`
		Name        string   `json:"facility_name"`
		Lat         float64  `json:"latitude"`
		StackHeight *float64 `json:"max_stack_height_m"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, 602, body[0].ORISPL)
	assert.Equal(t, "Brandon Shores", body[0].Name)
	assert.Equal(t, 39.18, body[0].Lat)
	require.NotNil(t, body[0].StackHeight)
	assert.Equal(t, 213.36, *body[0].StackHeight)
	assert.Equal(t, 1552, body[1].ORISPL)
	assert.Nil(t, body[1].StackHeight)
}

func TestSeriesEndpoint(t *testing.T) {
	srv := newTestServer(nil)

	t.Run("facility total with empty hour", func(t *testing.T) {
		rec := get(t, srv, "/series?variable=so2,lbs&facility=602")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Variable string `json:"variable"`
			Points   []struct {
				Time  time.Time `json:"time"`
				Value *float64  `json:"value"`
			} `json:"points"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, domain.ColSO2Lbs, body.Variable)
		require.Len(t, body.Points, 2)
		require.NotNil(t, body.Points[0].Value)
		assert.Equal(t, 15.0, *body.Points[0].Value)
		assert.Nil(t, body.Points[1].Value, "NaN cells are null")
	})

	t.Run("single unit within range", func(t *testing.T) {
		rec := get(t, srv, "/series?variable=so2_lbs&facility=602&unit=2&start=2016-01-01T00:00:00Z&end=2016-01-02T00:00:00Z")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"value":5`)
	})

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"missing variable", "/series?facility=602", http.StatusBadRequest},
		{"bad facility", "/series?variable=so2&facility=x", http.StatusBadRequest},
		{"half range", "/series?variable=so2&facility=602&start=2016-01-01T00:00:00Z", http.StatusBadRequest},
		{"unknown variable", "/series?variable=mercury&facility=602", http.StatusNotFound},
		{"unknown facility", "/series?variable=so2&facility=9", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, get(t, srv, tt.target).Code)
		})
	}
}
