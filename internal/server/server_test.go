package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/autodash/internal/dashboard"
	"github.com/KaramelBytes/autodash/internal/table"
)

const ordersCSV = `order_date,customer_id,amount,region
2024-01-05,c1,10,north
2024-01-20,c2,20,south
2024-02-10,c1,5,north
2024-03-09,c3,7.5,east
2024-04-01,c2,2.5,east
`

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.ReadOptions == (table.ReadOptions{}) {
		cfg.ReadOptions = table.DefaultReadOptions()
	}
	s := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func upload(t *testing.T, ts *httptest.Server, name, body string) SessionResponse {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/sessions?name="+name, "text/csv", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestUploadAndDashboardRoundTrip(t *testing.T) {
	ts := newTestServer(t, Config{})
	sess := upload(t, ts, "orders.csv", ordersCSV)

	assert.Equal(t, "orders.csv", sess.Name)
	assert.Equal(t, 5, sess.Rows)
	assert.Equal(t, "order_date", sess.Roles.Time)
	assert.Equal(t, "amount", sess.Roles.Revenue)
	assert.Equal(t, []string{"region"}, sess.Roles.Dimensions)
	require.NotNil(t, sess.TimeBounds)
	assert.Equal(t, 2024, sess.TimeBounds.From.Year())
	assert.NotNil(t, sess.Warnings)

	var d dashboard.Dashboard
	status := getJSON(t, ts.URL+"/api/sessions/"+sess.ID.String()+"/dashboard?granularity=W&segment=region&values=north,south", &d)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, d.Metrics.RowsAnalyzed)
	assert.Equal(t, 35.0, d.Metrics.TotalRevenue)
	require.NotNil(t, d.Metrics.ARPU)
	assert.InDelta(t, 17.5, *d.Metrics.ARPU, 1e-9)
	require.Len(t, d.Slots, 5)
	assert.Equal(t, "week", string(d.Slots[0].Granularity))

	var got SessionResponse
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/sessions/"+sess.ID.String(), &got))
	assert.Equal(t, sess.ID, got.ID)
}

func TestMultipartUpload(t *testing.T) {
	ts := newTestServer(t, Config{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "scores.tsv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("x\ty\n1\t2\n2\t4\n3\t5\n"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/sessions", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var sess SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	assert.Equal(t, "scores.tsv", sess.Name)
	assert.Equal(t, []string{"x", "y"}, sess.Roles.NumericMeasures)
	assert.Nil(t, sess.TimeBounds)
}

func TestDashboardErrors(t *testing.T) {
	ts := newTestServer(t, Config{})
	sess := upload(t, ts, "orders.csv", ordersCSV)
	base := ts.URL + "/api/sessions/" + sess.ID.String()

	tests := []struct {
		name   string
		url    string
		status int
	}{
		{"unknown session", ts.URL + "/api/sessions/" + uuid.NewString() + "/dashboard", http.StatusNotFound},
		{"malformed id", ts.URL + "/api/sessions/nope/dashboard", http.StatusNotFound},
		{"bad group_by", base + "/dashboard?group_by=amount", http.StatusBadRequest},
		{"bad granularity", base + "/dashboard?granularity=Q", http.StatusBadRequest},
		{"bad date", base + "/dashboard?from=yesterday", http.StatusBadRequest},
		{"inverted range", base + "/dashboard?from=2024-03-01&to=2024-01-01", http.StatusBadRequest},
		{"segment not a dimension", base + "/dashboard?segment=customer_id&values=c1", http.StatusBadRequest},
		{"segments of non-dimension", base + "/segments/amount", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			status := getJSON(t, tt.url, &body)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestSegmentsAndDelete(t *testing.T) {
	ts := newTestServer(t, Config{})
	sess := upload(t, ts, "orders.csv", ordersCSV)
	base := ts.URL + "/api/sessions/" + sess.ID.String()

	var seg SegmentsResponse
	require.Equal(t, http.StatusOK, getJSON(t, base+"/segments/region", &seg))
	assert.Equal(t, []string{"east", "north", "south"}, seg.Values)

	req, _ := http.NewRequest(http.MethodDelete, base, nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, getJSON(t, base, nil))

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadRejections(t *testing.T) {
	ts := newTestServer(t, Config{MaxUploadBytes: 64})

	resp, err := http.Post(ts.URL+"/api/sessions", "text/csv", strings.NewReader(""))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/sessions?name=big.csv", "text/csv", strings.NewReader(ordersCSV+ordersCSV))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/api/sessions?name=book.xlsx", "application/octet-stream", strings.NewReader("PK"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, Config{})
	var body map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, Config{CORSOrigins: []string{"http://localhost:3000"}})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStoreEvictsOldest(t *testing.T) {
	st := NewStore(2)
	tbl, err := table.FromRecords("t.csv", []string{"v"}, [][]string{{"1"}})
	require.NoError(t, err)

	a, _ := st.Add(dashboard.New("a", tbl))
	b, _ := st.Add(dashboard.New("b", tbl))
	c, evicted := st.Add(dashboard.New("c", tbl))

	assert.Equal(t, []uuid.UUID{a}, evicted)
	_, ok := st.Get(a)
	assert.False(t, ok)
	for _, id := range []uuid.UUID{b, c} {
		_, ok := st.Get(id)
		assert.True(t, ok)
	}
	assert.Equal(t, 2, st.Len())

	assert.True(t, st.Delete(b))
	d, evicted := st.Add(dashboard.New("d", tbl))
	assert.Empty(t, evicted)
	_, ok = st.Get(d)
	assert.True(t, ok)
}

func TestConcurrentDashboardRequests(t *testing.T) {
	ts := newTestServer(t, Config{})
	sess := upload(t, ts, "orders.csv", ordersCSV)
	url := ts.URL + "/api/sessions/" + sess.ID.String() + "/dashboard"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Get(url)
			if err != nil {
				t.Error(err)
				return
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("status = %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()
}

func TestDashboardOverflowReturnsCompleteError(t *testing.T) {
	ts := newTestServer(t, Config{})
	sess := upload(t, ts, "huge.csv", "order_date,amount\n2024-01-01,1e308\n2024-01-02,1e308\n")

	resp, err := http.Get(ts.URL + "/api/sessions/" + sess.ID.String() + "/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unable to encode response", body["error"])
}
