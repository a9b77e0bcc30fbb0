// Package client calls the mediascribe HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Error is a non-2xx answer from the API.
type Error struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
	}
	if len(e.Fields) > 0 {
		var parts []string
		for f, msgs := range e.Fields {
			parts = append(parts, f+": "+strings.Join(msgs, " "))
		}
		sort.Strings(parts)
		return fmt.Sprintf("api: %d: %s", e.Status, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("api: %d", e.Status)
}

type File struct {
	Key          string `json:"Key"`
	FileURL      string `json:"FileURL"`
	LastModified string `json:"LastModified"`
	Size         int64  `json:"Size"`
	ETag         string `json:"ETag"`
}

type Client struct {
	base  string
	token string
	http  *http.Client
}

// New returns a client for the API at base, e.g. "http://localhost:8000".
// Transcription waits on the server, so the default timeout is generous.
func New(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 35 * time.Minute}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: httpClient}
}

// WithToken returns a copy of the client that authenticates with token.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) Register(ctx context.Context, username, password, email string) error {
	body := map[string]string{"username": username, "password": password, "email": email}
	return c.postJSON(ctx, "/api/register/", body, nil)
}

// Login returns an access token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"username": username, "password": password}
	if err := c.postJSON(ctx, "/api/login/", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// Upload sends a local file and returns its public URL.
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	var out struct {
		FileURL string `json:"file_url"`
	}
	if err := c.postFile(ctx, "/api/upload/", path, &out); err != nil {
		return "", err
	}
	return out.FileURL, nil
}

func (c *Client) ListFiles(ctx context.Context) ([]File, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/s3-files/", nil)
	if err != nil {
		return nil, err
	}
	var files []File
	if err := c.do(req, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// Transcribe returns the raw transcript document for an uploaded file URL.
func (c *Client) Transcribe(ctx context.Context, fileURL string, medical bool) (json.RawMessage, error) {
	path := "/api/transcribe/"
	if medical {
		path = "/api/transcribe-medical/"
	}
	var out json.RawMessage
	if err := c.postJSON(ctx, path, map[string]string{"s3_url": fileURL}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.postJSON(ctx, "/api/summarize/", map[string]string{"text": text}, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

func (c *Client) SummarizeFile(ctx context.Context, path string) (string, error) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := c.postFile(ctx, "/api/summarize-file/", path, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// postFile streams path as the multipart "file" field.
func (c *Client) postFile(ctx context.Context, path, file string, out any) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(file))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, path, pr)
	if err != nil {
		pr.Close()
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}

func decodeError(status int, body []byte) error {
	e := &Error{Status: status}
	var msg struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &msg) == nil && msg.Error != "" {
		e.Message = msg.Error
		return e
	}
	var fields map[string][]string
	if json.Unmarshal(body, &fields) == nil && len(fields) > 0 {
		e.Fields = fields
		return e
	}
	e.Message = strings.TrimSpace(string(body))
	return e
}
