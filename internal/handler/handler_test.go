package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	gosync "sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JevanRaksha/internal/alerts"
	"JevanRaksha/internal/bot"
	"JevanRaksha/internal/chat"
	livesync "JevanRaksha/internal/sync"
	"JevanRaksha/internal/volunteer"
	stores "JevanRaksha/pkg/storage"
	"JevanRaksha/pkg/store"
)

type fakeStore struct {
	mu   gosync.Mutex
	rows map[string][]store.Row
	ops  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string][]store.Row{}}
}

func (f *fakeStore) record(op, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, op+":"+name)
}

func (f *fakeStore) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ops))
	copy(out, f.ops)
	return out
}

func (f *fakeStore) Select(ctx context.Context, table string, filter store.Filter, order *store.Order) ([]store.Row, error) {
	f.record("select", table)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows["select:"+table], nil
}

func (f *fakeStore) Insert(ctx context.Context, table string, row interface{}) ([]store.Row, error) {
	f.record("insert", table)
	b, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	return []store.Row{b}, nil
}

func (f *fakeStore) Update(ctx context.Context, table string, filter store.Filter, patch interface{}) ([]store.Row, error) {
	f.record("update", table)
	return nil, nil
}

func (f *fakeStore) Upsert(ctx context.Context, table string, row interface{}, onConflict string) ([]store.Row, error) {
	f.record("upsert", table)
	b, err := json.Marshal(row)
	if err != nil {
		return nil, err
	}
	return []store.Row{b}, nil
}

func (f *fakeStore) Call(ctx context.Context, fn string, args interface{}) ([]store.Row, error) {
	f.record("call", fn)
	return nil, nil
}

type memMedia struct {
	mu   gosync.Mutex
	data map[string][]byte
}

func newMemMedia() *memMedia {
	return &memMedia{data: map[string][]byte{}}
}

func (m *memMedia) Write(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = b
	return nil
}

func (m *memMedia) Read(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.data[key]
	return io.NopCloser(bytes.NewReader(b)), int64(len(b)), nil
}

func (m *memMedia) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *memMedia) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memMedia) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (m *memMedia) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

func newTestRouter(t *testing.T, st *fakeStore, media stores.Store, alertSvc *alerts.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := New(
		alertSvc,
		chat.NewService(st, media),
		bot.New(bot.Config{}),
		livesync.NewEmergencyService(st),
		volunteer.NewStatsService(st, nil),
		nil,
	)
	h.Register(r)
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(t, newFakeStore(), newMemMedia(), alerts.NewService(alerts.Config{URL: "http://127.0.0.1:1"}, nil, nil))

	w := doJSON(r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListAlertsFallsBackWhenFeedUnreachable(t *testing.T) {
	svc := alerts.NewService(alerts.Config{URL: "http://127.0.0.1:1"}, nil, nil)
	r := newTestRouter(t, newFakeStore(), newMemMedia(), svc)

	w := doJSON(r, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	feed, ok := body["alerts"].([]interface{})
	require.True(t, ok)
	require.Len(t, feed, 1)
	first := feed[0].(map[string]interface{})
	assert.Equal(t, "API Connection Error", first["type"])
	assert.Equal(t, "System", first["source"])
	assert.Equal(t, false, body["located"])
}

func TestListAlertsUsesQueryPosition(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(`[
			{"identifier":"near","disaster_type":"Flood","severity_level":"Red","centroid":"88.40,22.60"},
			{"identifier":"far","disaster_type":"Cyclone","severity_level":"Red","centroid":"77.20,28.61"}
		]`))
	}))
	defer backend.Close()

	svc := alerts.NewService(alerts.Config{URL: backend.URL, RadiusKm: 200}, nil, nil)
	r := newTestRouter(t, newFakeStore(), newMemMedia(), svc)

	w := doJSON(r, http.MethodGet, "/api/alerts?lat=22.5726&lng=88.3639", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.Equal(t, true, body["located"])
	feed := body["alerts"].([]interface{})
	require.Len(t, feed, 1)
	assert.Equal(t, "near", feed[0].(map[string]interface{})["id"])
}

func TestRaiseEmergency(t *testing.T) {
	st := newFakeStore()
	r := newTestRouter(t, st, newMemMedia(), alerts.NewService(alerts.Config{URL: "http://127.0.0.1:1"}, nil, nil))

	w := doJSON(r, http.MethodPost, "/api/emergencies", map[string]interface{}{
		"userId":        "u-1",
		"emergencyType": "flood",
		"location":      map[string]float64{"lat": 22.6, "lng": 88.4},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	ops := st.recorded()
	assert.Contains(t, ops, "insert:emergency_alerts")
	assert.Contains(t, ops, "call:assign_volunteer_to_alert")
}

func TestRaiseEmergencyRequiresUser(t *testing.T) {
	st := newFakeStore()
	r := newTestRouter(t, st, newMemMedia(), alerts.NewService(alerts.Config{URL: "http://127.0.0.1:1"}, nil, nil))

	w := doJSON(r, http.MethodPost, "/api/emergencies", map[string]interface{}{
		"emergencyType": "flood",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, st.recorded())
}

func TestAcceptAndCompleteMission(t *testing.T) {
	st := newFakeStore()
	r := newTestRouter(t, st, newMemMedia(), alerts.NewService(alerts.Config{URL: "http://127.0.0.1:1"}, nil, nil))

	w := doJSON(r, http.MethodPost, "/api/emergencies/a-1/accept", map[string]string{"volunteerId": "v-1"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/emergencies/a-1/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)

	ops := st.recorded()
	assert.Equal(t, []string{
		"update:emergency_alerts",
		"insert:volunteer_assignments",
		"update:emergency_alerts",
		"update:volunteer_assignments",
	}, ops)
}

func TestSendMessage(t *testing.T) {
	st := newFakeStore()
	r := newTestRouter(t, st, newMemMedia(), alerts.NewService(alerts.Config{URL: "http://127.0.0.1:1"}, nil, nil))

	w := doJSON(r, http.MethodPost, "/api/chat/a-1/messages", map[string]string{
		"senderId": "u-1",
		"message":  "is the bridge passable?",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	body := decodeBody(t, w)
	msg := body["message"].(map[string]interface{})
	assert.Equal(t, "is the bridge passable?", msg["message"])
	assert.Equal(t, "a-1", msg["alert_id"])
}

func TestSendMedia(t *testing.T) {
	st := newFakeStore()
	media := newMemMedia()
	r := newTestRouter(t, st, media, alerts.NewService(alerts.Config{URL: "http://127.0.0.1:1"}, nil, nil))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("senderId", "u-1"))
	part, err := mw.CreateFormFile("file", "bridge.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/chat/a-1/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	keys := media.keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "chat-media/a-1/")

	body := decodeBody(t, w)
	msg := body["message"].(map[string]interface{})
	assert.Equal(t, "https://cdn.test/"+keys[0], msg["media_url"])
}

func TestVolunteerProgress(t *testing.T) {
	st := newFakeStore()
	st.rows["select:volunteer_assignments"] = []store.Row{
		json.RawMessage(`{"id":"as-1"}`),
		json.RawMessage(`{"id":"as-2"}`),
	}
	r := newTestRouter(t, st, newMemMedia(), alerts.NewService(alerts.Config{URL: "http://127.0.0.1:1"}, nil, nil))

	w := doJSON(r, http.MethodGet, "/api/volunteers/v-1/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["missions_completed"])

	level := body["level"].(map[string]interface{})
	assert.Equal(t, "Rookie", level["Name"])

	next := body["nextBadge"].(map[string]interface{})
	assert.Equal(t, "Week Warrior", next["Name"])
}

func TestAssistantRoundTrip(t *testing.T) {
	r := newTestRouter(t, newFakeStore(), newMemMedia(), alerts.NewService(alerts.Config{URL: "http://127.0.0.1:1"}, nil, nil))

	w := doJSON(r, http.MethodPost, "/api/assistant/messages", map[string]string{"message": "help"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["reply"])

	w = doJSON(r, http.MethodGet, "/api/assistant/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decodeBody(t, w)["messages"].([]interface{})
	assert.Len(t, history, 3)

	w = doJSON(r, http.MethodDelete, "/api/assistant/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/assistant/history", nil)
	history = decodeBody(t, w)["messages"].([]interface{})
	assert.Len(t, history, 1)
}
