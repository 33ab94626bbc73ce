package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/pkg/errors"

	"github.com/totegamma/works-uploader"
)

const (
	defaultUserAgent = "works-uploader-client/1.0"
	maxErrorBody     = 4096
)

// API is the capability the frontend needs from the works backend.
type API interface {
	GetWorks(ctx context.Context) ([]works.Work, error)
	PostWork(ctx context.Context, form works.WorkForm) error
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

type Client struct {
	client    *http.Client
	baseURL   string
	userAgent string
	token     string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying transport client. Its Transport is wrapped.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithToken sends the token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		client:    &http.Client{},
		baseURL:   baseURL,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	wrapped := *c.client
	next := wrapped.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped.Transport = &roundTripper{client: c, next: next}
	c.client = &wrapped

	return c
}

type roundTripper struct {
	client *Client
	next   http.RoundTripper
}

func (t *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.client.userAgent)
	if t.client.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.client.token)
	}
	return t.next.RoundTrip(req)
}

func (c *Client) GetWorks(ctx context.Context) ([]works.Work, error) {
	var result []works.Work
	err := c.do(ctx, http.MethodGet, "/works", nil, "", &result)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = []works.Work{}
	}
	return result, nil
}

func (c *Client) PostWork(ctx context.Context, form works.WorkForm) error {
	if !form.HasFiles() {
		body, err := json.Marshal(form)
		if err != nil {
			return errors.Wrap(err, "failed to encode work form")
		}
		return c.do(ctx, http.MethodPost, "/works", bytes.NewReader(body), "application/json", nil)
	}

	body, contentType, err := encodeMultipart(form)
	if err != nil {
		return errors.Wrap(err, "failed to encode multipart work form")
	}
	return c.do(ctx, http.MethodPost, "/works", body, contentType, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, response any) error {
	url, err := works.JoinURL(c.baseURL, path)
	if err != nil {
		return errors.Wrap(err, "invalid base url")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to perform request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(msg)}
	}

	if response == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(response)
	if err != nil {
		return errors.Wrap(err, "failed to decode response")
	}

	return nil
}

func encodeMultipart(form works.WorkForm) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"type":        strconv.Itoa(int(form.Type)),
		"title":       form.Title,
		"description": form.Description,
	}
	if form.ContentURL != "" {
		fields["contentUrl"] = form.ContentURL
	}
	for _, name := range []string{"type", "title", "description", "contentUrl"} {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	files := []struct {
		field string
		file  *works.FormFile
	}{
		{"thumbnail", form.Thumbnail},
		{"content", form.Content},
	}
	for _, f := range files {
		if f.file == nil {
			continue
		}
		if err := writeFile(w, f.field, f.file); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, field string, file *works.FormFile) error {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, file.Filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(file.Data)
	return err
}
