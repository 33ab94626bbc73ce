package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/internal/domain"
	"github.com/totegamma/works-uploader/internal/present/rest/middleware"
	"github.com/totegamma/works-uploader/internal/service"
	"github.com/totegamma/works-uploader/internal/usecase"
	"github.com/totegamma/works-uploader/internal/validation"
)

// --- mocks ---

type memoryWorkRepo struct {
	mu    sync.Mutex
	works []works.Work
}

func (m *memoryWorkRepo) List(ctx context.Context, offset, limit int) ([]works.Work, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := append([]works.Work(nil), m.works...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.After(sorted[j].CreatedAt) })
	if offset > len(sorted) {
		return []works.Work{}, nil
	}
	end := offset + limit
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[offset:end], nil
}

func (m *memoryWorkRepo) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.works)), nil
}

func (m *memoryWorkRepo) Get(ctx context.Context, id string) (works.Work, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.works {
		if w.ID == id {
			return w, nil
		}
	}
	return works.Work{}, domain.NotFoundError{Resource: "work"}
}

func (m *memoryWorkRepo) Create(ctx context.Context, w works.Work) (works.Work, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.works = append(m.works, w)
	return w, nil
}

func (m *memoryWorkRepo) Update(ctx context.Context, w works.Work) (works.Work, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.works {
		if m.works[i].ID == w.ID {
			m.works[i] = w
			return w, nil
		}
	}
	return works.Work{}, domain.NotFoundError{Resource: "work"}
}

func (m *memoryWorkRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.works {
		if m.works[i].ID == id {
			m.works = append(m.works[:i], m.works[i+1:]...)
			return nil
		}
	}
	return domain.NotFoundError{Resource: "work"}
}

type memoryActivityRepo struct {
	activities []works.Activity
}

func (m *memoryActivityRepo) Create(ctx context.Context, a works.Activity) (works.Activity, error) {
	a.ID = int64(len(m.activities) + 1)
	m.activities = append(m.activities, a)
	return a, nil
}

func (m *memoryActivityRepo) Recent(ctx context.Context, limit int) ([]works.Activity, error) {
	var result []works.Activity
	for i := len(m.activities) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, m.activities[i])
	}
	return result, nil
}

type memoryStorage struct {
	objects map[string][]byte
}

func (m *memoryStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	m.objects[key] = data
	return "http://files.example.com/" + key, nil
}

func (m *memoryStorage) Delete(ctx context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

// fakeRealtime delivers one activity, then waits for the stream to be torn down.
type fakeRealtime struct {
	activity works.Activity
	exited   chan struct{}
}

func (f *fakeRealtime) Realtime(ctx context.Context, output chan<- works.Activity) {
	defer close(f.exited)
	select {
	case output <- f.activity:
	case <-ctx.Done():
		return
	}
	<-ctx.Done()
}

// --- fixture ---

type fixture struct {
	e          *echo.Echo
	works      *memoryWorkRepo
	activities *memoryActivityRepo
	storage    *memoryStorage
	auth       *service.AuthService
}

func newFixture(t *testing.T, seed ...works.Work) *fixture {
	t.Helper()

	f := &fixture{
		works:      &memoryWorkRepo{works: seed},
		activities: &memoryActivityRepo{},
		storage:    &memoryStorage{objects: map[string][]byte{}},
		auth:       service.NewAuthService("test-secret", nil),
	}

	activityUC := usecase.NewActivityUsecase(f.activities, nil)
	workUC := usecase.NewWorkUsecase(f.works, f.storage, activityUC, validation.New())

	f.e = echo.New()
	f.e.Use(middleware.NewAuthMiddleware(f.auth).IdentifyIdentity)
	NewHandler(workUC, activityUC, nil).RegisterRoutes(f.e)
	return f
}

func (f *fixture) token(t *testing.T, id string) string {
	t.Helper()
	token, err := f.auth.IssueJwt(works.User{ID: id, Name: id}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	f.e.ServeHTTP(res, req)
	return res
}

func jsonRequest(method, path string, body any, token string) *http.Request {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func seedWorks() []works.Work {
	base := time.Date(2021, 5, 2, 0, 0, 0, 0, time.UTC)
	return []works.Work{
		{ID: "01", Author: "taro", Title: "first", CreatedAt: base},
		{ID: "02", Author: "hanako", Title: "second", CreatedAt: base.Add(time.Hour)},
		{ID: "03", Author: "taro", Title: "third", CreatedAt: base.Add(2 * time.Hour)},
	}
}

// --- tests ---

func TestHandleListWorks(t *testing.T) {
	f := newFixture(t, seedWorks()...)

	res := f.do(httptest.NewRequest(http.MethodGet, "/works?offset=1&limit=1", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	if res.Header().Get("X-Total-Count") != "3" {
		t.Fatalf("expected total count 3 got %q", res.Header().Get("X-Total-Count"))
	}

	var list []works.Work
	if err := json.Unmarshal(res.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 1 || list[0].ID != "02" {
		t.Fatalf("unexpected page %+v", list)
	}
}

func TestHandleListWorksBadParams(t *testing.T) {
	f := newFixture(t)

	for _, q := range []string{"offset=-1", "offset=x", "limit=abc"} {
		res := f.do(httptest.NewRequest(http.MethodGet, "/works?"+q, nil))
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", q, res.Code)
		}
	}
}

func TestHandleGetWork(t *testing.T) {
	f := newFixture(t, seedWorks()...)

	res := f.do(httptest.NewRequest(http.MethodGet, "/works/02", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}
	var w works.Work
	_ = json.Unmarshal(res.Body.Bytes(), &w)
	if w.Title != "second" {
		t.Fatalf("unexpected work %+v", w)
	}

	res = f.do(httptest.NewRequest(http.MethodGet, "/works/99", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", res.Code)
	}
}

func TestHandleCreateWorkRequiresAuth(t *testing.T) {
	f := newFixture(t)

	form := works.WorkForm{Type: works.WorkTypeURL, Title: "hoge", ContentURL: "https://example.com"}
	res := f.do(jsonRequest(http.MethodPost, "/works", form, ""))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", res.Code)
	}

	res = f.do(jsonRequest(http.MethodPost, "/works", form, "garbage"))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", res.Code)
	}
	if len(f.works.works) != 0 {
		t.Fatalf("no work must be created")
	}
}

func TestHandleCreateWorkJSON(t *testing.T) {
	f := newFixture(t)

	form := works.WorkForm{Type: works.WorkTypeURL, Title: "hoge", ContentURL: "https://example.com"}
	res := f.do(jsonRequest(http.MethodPost, "/works", form, f.token(t, "taro")))
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", res.Code, res.Body.String())
	}

	var created works.Work
	_ = json.Unmarshal(res.Body.Bytes(), &created)
	if created.Author != "taro" || created.ContentURL != "https://example.com" {
		t.Fatalf("unexpected work %+v", created)
	}
	if !strings.HasSuffix(res.Header().Get(echo.HeaderLocation), "/works/"+created.ID) {
		t.Fatalf("unexpected location %q", res.Header().Get(echo.HeaderLocation))
	}
	if len(f.activities.activities) != 1 {
		t.Fatalf("expected activity to be recorded")
	}
}

func TestHandleCreateWorkValidation(t *testing.T) {
	f := newFixture(t)

	res := f.do(jsonRequest(http.MethodPost, "/works", works.WorkForm{Type: works.WorkTypeURL}, f.token(t, "taro")))
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", res.Code)
	}

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	_ = json.Unmarshal(res.Body.Bytes(), &body)
	if _, ok := body.Fields["title"]; !ok {
		t.Fatalf("expected title error, got %v", body.Fields)
	}
	if _, ok := body.Fields["contentUrl"]; !ok {
		t.Fatalf("expected contentUrl error, got %v", body.Fields)
	}
}

func TestHandleCreateWorkMultipart(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("type", "2")
	_ = w.WriteField("title", "files")
	thumb, _ := w.CreateFormFile("thumbnail", "t.png")
	_, _ = thumb.Write([]byte("png"))
	content, _ := w.CreateFormFile("content", "c.zip")
	_, _ = content.Write([]byte("zip"))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/works", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token(t, "taro"))

	res := f.do(req)
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", res.Code, res.Body.String())
	}
	if len(f.storage.objects) != 2 {
		t.Fatalf("expected 2 stored objects, got %d", len(f.storage.objects))
	}

	var created works.Work
	_ = json.Unmarshal(res.Body.Bytes(), &created)
	if !strings.HasPrefix(created.ContentURL, "http://files.example.com/contents/") {
		t.Fatalf("unexpected content url %s", created.ContentURL)
	}
}

func TestHandleCreateWorkMultipartBadType(t *testing.T) {
	f := newFixture(t)

	for _, typ := range []string{"", "url"} {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if typ != "" {
			_ = w.WriteField("type", typ)
		}
		_ = w.WriteField("title", "hoge")
		_ = w.Close()

		req := httptest.NewRequest(http.MethodPost, "/works", &buf)
		req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token(t, "taro"))

		res := f.do(req)
		if res.Code != http.StatusUnprocessableEntity {
			t.Fatalf("type %q: expected 422 got %d: %s", typ, res.Code, res.Body.String())
		}

		var body struct {
			Fields map[string]string `json:"fields"`
		}
		_ = json.Unmarshal(res.Body.Bytes(), &body)
		if body.Fields["type"] != "This field is required" {
			t.Fatalf("type %q: expected type error, got %v", typ, body.Fields)
		}
	}
	if len(f.works.works) != 0 {
		t.Fatalf("no work must be created")
	}
}

func TestHandleUpdateWork(t *testing.T) {
	f := newFixture(t, seedWorks()...)

	form := works.WorkForm{Type: works.WorkTypeURL, Title: "renamed", ContentURL: "https://example.com"}

	res := f.do(jsonRequest(http.MethodPut, "/works/02", form, f.token(t, "taro")))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", res.Code)
	}

	res = f.do(jsonRequest(http.MethodPut, "/works/02", form, f.token(t, "hanako")))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", res.Code, res.Body.String())
	}
	got, _ := f.works.Get(context.Background(), "02")
	if got.Title != "renamed" {
		t.Fatalf("expected title to be updated, got %s", got.Title)
	}

	res = f.do(jsonRequest(http.MethodPut, "/works/99", form, f.token(t, "hanako")))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", res.Code)
	}
}

func TestHandleDeleteWork(t *testing.T) {
	f := newFixture(t, seedWorks()...)

	req := httptest.NewRequest(http.MethodDelete, "/works/01", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+f.token(t, "taro"))
	res := f.do(req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", res.Code)
	}

	res = f.do(httptest.NewRequest(http.MethodGet, "/works/01", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.Code)
	}
}

func TestHandleActivities(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "taro")

	for _, title := range []string{"a", "b", "c"} {
		form := works.WorkForm{Type: works.WorkTypeURL, Title: title, ContentURL: "https://example.com"}
		if res := f.do(jsonRequest(http.MethodPost, "/works", form, token)); res.Code != http.StatusCreated {
			t.Fatalf("create %s: %d", title, res.Code)
		}
	}

	res := f.do(httptest.NewRequest(http.MethodGet, "/activities?limit=2", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", res.Code)
	}

	var list []works.Activity
	_ = json.Unmarshal(res.Body.Bytes(), &list)
	if len(list) != 2 || list[0].Work.Title != "c" || list[0].Type != works.ActivityTypeNew {
		t.Fatalf("unexpected activities %+v", list)
	}
}

func TestHandleRealtime(t *testing.T) {
	realtime := &fakeRealtime{
		activity: works.Activity{
			ID:   7,
			Type: works.ActivityTypeNew,
			User: works.User{ID: "taro"},
			Work: works.Work{ID: "01", Title: "hoge"},
		},
		exited: make(chan struct{}),
	}

	activityUC := usecase.NewActivityUsecase(&memoryActivityRepo{}, nil)
	workUC := usecase.NewWorkUsecase(&memoryWorkRepo{}, &memoryStorage{objects: map[string][]byte{}}, activityUC, validation.New())

	e := echo.New()
	NewHandler(workUC, activityUC, realtime).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/realtime"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var got works.Activity
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read activity: %v", err)
	}
	if got.ID != 7 || got.Type != works.ActivityTypeNew || got.Work.Title != "hoge" {
		t.Fatalf("unexpected activity %+v", got)
	}

	if err := conn.WriteJSON(Request{Type: "h"}); err != nil {
		t.Fatalf("write heartbeat: %v", err)
	}
	select {
	case <-realtime.exited:
		t.Fatalf("heartbeat must keep the stream open")
	case <-time.After(100 * time.Millisecond):
	}

	err = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		t.Fatalf("write close: %v", err)
	}
	select {
	case <-realtime.exited:
	case <-time.After(5 * time.Second):
		t.Fatalf("realtime subscription was not cancelled after the socket closed")
	}
}

func TestHandleRealtimeDisabledWithoutSignal(t *testing.T) {
	f := newFixture(t)

	res := f.do(httptest.NewRequest(http.MethodGet, "/realtime", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", res.Code)
	}
}
