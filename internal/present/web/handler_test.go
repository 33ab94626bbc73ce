package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/works-uploader"
	"github.com/totegamma/works-uploader/client"
	"github.com/totegamma/works-uploader/internal/store"
	"github.com/totegamma/works-uploader/internal/validation"
)

type failingAPI struct{}

func (failingAPI) GetWorks(ctx context.Context) ([]works.Work, error) {
	return nil, errors.New("connection refused")
}

func (failingAPI) PostWork(ctx context.Context, form works.WorkForm) error {
	return errors.New("connection refused")
}

func newServer(t *testing.T, api client.API, seed ...works.Work) (*echo.Echo, *store.WorkStore) {
	t.Helper()

	renderer, err := NewRenderer()
	require.NoError(t, err)

	workStore := store.NewWorkStore(api, store.WithWorks(seed))
	activityStore := store.NewActivityStore(store.DefaultActivities(time.Now()))

	e := echo.New()
	e.Renderer = renderer
	NewHandler(workStore, activityStore, api, validation.New()).RegisterRoutes(e)
	return e, workStore
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/works", strings.NewReader(values.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	return req
}

func TestIndexRendersFetchedWorksAndActivities(t *testing.T) {
	e, workStore := newServer(t, client.NewStub())

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `href="/works/05"`)
	assert.Contains(t, rec.Body.String(), `XXX added "YYY"`)
	assert.Equal(t, 5, workStore.Len())

	serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 5, workStore.Len())
}

func TestIndexShowsErrorWhenFetchFails(t *testing.T) {
	e, workStore := newServer(t, failingAPI{}, works.Work{ID: "cached", Title: "kept"})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to load works")
	assert.Contains(t, rec.Body.String(), "kept")
	assert.Equal(t, 1, workStore.Len())
}

func TestWorkDetail(t *testing.T) {
	e, _ := newServer(t, client.NewStub())

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/works/02", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "by hanako")

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/works/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewForm(t *testing.T) {
	e, _ := newServer(t, client.NewStub())

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/works/new", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="contentUrl"`)
}

func TestPostWorkSuccess(t *testing.T) {
	stub := client.NewStubWith(nil)
	e, workStore := newServer(t, stub)

	rec := serve(e, postForm(url.Values{
		"type":       {"1"},
		"title":      {"hoge"},
		"contentUrl": {"https://example.com"},
	}))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	posted := stub.Posted()
	require.Len(t, posted, 1)
	assert.Equal(t, "hoge", posted[0].Title)

	list := workStore.Works()
	require.Len(t, list, 1)
	assert.Equal(t, "https://example.com", list[0].ContentURL)
}

func TestPostWorkValidationNeverReachesAPI(t *testing.T) {
	stub := client.NewStubWith(nil)
	e, workStore := newServer(t, stub)

	rec := serve(e, postForm(url.Values{"type": {"1"}, "title": {""}}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required")
	assert.Empty(t, stub.Posted())
	assert.Equal(t, 0, workStore.Len())
}

func TestPostWorkAPIFailure(t *testing.T) {
	e, workStore := newServer(t, failingAPI{})

	rec := serve(e, postForm(url.Values{
		"type":       {"1"},
		"title":      {"hoge"},
		"contentUrl": {"https://example.com"},
	}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to upload the work")
	assert.Equal(t, 0, workStore.Len())
}
