package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/prakriti/internal/db"
	"github.com/vbonduro/prakriti/internal/domain"
	"github.com/vbonduro/prakriti/internal/pairing"
	"github.com/vbonduro/prakriti/internal/photostore"
	"github.com/vbonduro/prakriti/internal/service"
	"github.com/vbonduro/prakriti/internal/store"
	"github.com/vbonduro/prakriti/internal/web"
)

// minimalJPEG is 512 bytes with the JPEG magic bytes header followed by zeros.
var minimalJPEG = func() []byte {
	b := make([]byte, 512)
	b[0] = 0xFF
	b[1] = 0xD8
	b[2] = 0xFF
	b[3] = 0xE0
	return b
}()

// memPhotoStore is a simple in-memory implementation of photostore.PhotoStore.
type memPhotoStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	mimes   map[string]string
	counter int
}

func newMemPhotoStore() *memPhotoStore {
	return &memPhotoStore{
		data:  make(map[string][]byte),
		mimes: make(map[string]string),
	}
}

func (m *memPhotoStore) Save(_ context.Context, prefix, mimeType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	key := fmt.Sprintf("%s_%d", prefix, m.counter)
	m.data[key] = data
	m.mimes[key] = mimeType
	return key, nil
}

func (m *memPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, "", photostore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), m.mimes[key], nil
}

func (m *memPhotoStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.mimes, key)
	return nil
}

func (m *memPhotoStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// newTestServer sets up a real web.Server backed by in-memory SQLite.
func newTestServer(t *testing.T) (*httptest.Server, *memPhotoStore) {
	t.Helper()
	database, err := db.OpenForTesting()
	require.NoError(t, err)

	photos := newMemPhotoStore()
	svc := service.NewReportService(
		store.NewReportStore(database),
		photos,
		nil,
		nil,
		pairing.NewMatcher(pairing.DefaultThresholdMeters),
		slog.Default(),
	)
	srv := httptest.NewServer(web.NewServer(svc, slog.Default()))
	t.Cleanup(func() {
		srv.Close()
		_ = database.Close()
	})
	return srv, photos
}

type reportForm struct {
	kind, description, lat, lng string
	image                       []byte
}

// buildMultipartBody creates a multipart/form-data report submission.
func buildMultipartBody(t *testing.T, f reportForm) (body *bytes.Buffer, contentType string) {
	t.Helper()
	body = &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range map[string]string{
		"kind":        f.kind,
		"description": f.description,
		"contributor": "Sarah M.",
		"lat":         f.lat,
		"lng":         f.lng,
	} {
		require.NoError(t, w.WriteField(k, v))
	}
	if f.image != nil {
		fw, err := w.CreateFormFile("image", "photo.jpg")
		require.NoError(t, err)
		_, err = fw.Write(f.image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func submit(t *testing.T, srv *httptest.Server, f reportForm) *http.Response {
	t.Helper()
	body, contentType := buildMultipartBody(t, f)
	resp, err := http.Post(srv.URL+"/api/reports", contentType, body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func mustSubmit(t *testing.T, srv *httptest.Server, kind, lat, lng string) domain.Report {
	t.Helper()
	resp := submit(t, srv, reportForm{kind: kind, description: "Glass bottles on street", lat: lat, lng: lng, image: minimalJPEG})
	b, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(b))

	var r domain.Report
	require.NoError(t, json.Unmarshal(b, &r))
	return r
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func post(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestIntegration_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestIntegration_SubmitAndFetchReport(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv, _ := newTestServer(t)

	r := mustSubmit(t, srv, "before", "28.6215", "77.2150")
	assert.Equal(t, domain.KindBefore, r.Kind)
	assert.Equal(t, domain.StatusPending, r.Status)
	assert.Equal(t, "Sarah M.", r.Contributor)

	var got domain.Report
	require.Equal(t, http.StatusOK, getJSON(t, fmt.Sprintf("%s/api/reports/%d", srv.URL, r.ID), &got))
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "image/jpeg", got.MimeType)

	resp, err := http.Get(fmt.Sprintf("%s/api/reports/%d/photo", srv.URL, r.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, minimalJPEG, data)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/reports/999", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/reports/abc", nil))
}

func TestIntegration_SubmitValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv, photos := newTestServer(t)

	tests := []struct {
		name string
		form reportForm
	}{
		{"no image", reportForm{kind: "before", description: "x", lat: "1", lng: "1"}},
		{"not an image", reportForm{kind: "before", description: "x", lat: "1", lng: "1", image: []byte("%PDF-1.4")}},
		{"bad kind", reportForm{kind: "during", description: "x", lat: "1", lng: "1", image: minimalJPEG}},
		{"missing location", reportForm{kind: "before", description: "x", image: minimalJPEG}},
		{"bad latitude", reportForm{kind: "before", description: "x", lat: "north", lng: "1", image: minimalJPEG}},
		{"latitude out of range", reportForm{kind: "before", description: "x", lat: "95", lng: "1", image: minimalJPEG}},
		{"missing description", reportForm{kind: "before", lat: "1", lng: "1", image: minimalJPEG}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := submit(t, srv, tt.form)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Zero(t, photos.Len())
}

func TestIntegration_ListReportsFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv, _ := newTestServer(t)
	mustSubmit(t, srv, "before", "1", "1")
	mustSubmit(t, srv, "after", "1", "1")

	var all, afters []domain.Report
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/reports", &all))
	assert.Len(t, all, 2)
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/reports?kind=after", &afters))
	require.Len(t, afters, 1)
	assert.Equal(t, domain.KindAfter, afters[0].Kind)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/reports?status=done", nil))
}

func TestIntegration_ApproveFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv, _ := newTestServer(t)
	before := mustSubmit(t, srv, "before", "28.6139", "77.2090")
	mustSubmit(t, srv, "after", "28.61392", "77.20902")
	mustSubmit(t, srv, "before", "28.7000", "77.3000")

	var pairs []domain.Pair
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/pairs", &pairs))
	require.Len(t, pairs, 1)
	assert.Equal(t, before.ID, pairs[0].ID)

	resp := post(t, fmt.Sprintf("%s/api/pairs/%d/approve", srv.URL, before.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var approved domain.Pair
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&approved))
	assert.Equal(t, domain.StatusVerified, approved.Before.Status)
	assert.Equal(t, domain.StatusVerified, approved.After.Status)

	var dash pairing.Summary
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/dashboard", &dash))
	assert.Equal(t, pairing.Counts{Pending: 1, Completed: 0, Verified: 1}, dash.Counts)

	var markers []service.Marker
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/map?status=verified", &markers))
	require.Len(t, markers, 2)
	assert.Equal(t, service.MarkerColorVerified, markers[0].Color)

	resp = post(t, fmt.Sprintf("%s/api/pairs/%d/approve", srv.URL, before.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_RejectFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	srv, photos := newTestServer(t)
	before := mustSubmit(t, srv, "before", "1", "1")
	after := mustSubmit(t, srv, "after", "1", "1")

	resp := post(t, fmt.Sprintf("%s/api/pairs/%d/reject", srv.URL, before.ID))
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.Equal(t, http.StatusNotFound, getJSON(t, fmt.Sprintf("%s/api/reports/%d", srv.URL, before.ID), nil))
	assert.Equal(t, http.StatusNotFound, getJSON(t, fmt.Sprintf("%s/api/reports/%d", srv.URL, after.ID), nil))
	assert.Zero(t, photos.Len())

	resp = post(t, srv.URL+"/api/pairs/abc/reject")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_PairsRejectsUnknownStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/pairs?status=removed", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/map?status=removed", nil))
}
