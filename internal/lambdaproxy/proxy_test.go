package lambdaproxy

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
)

type seen struct {
	method, path, query, auth, requestID, body string
}

func echoHandler(s *seen) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		*s = seen{
			method:    r.Method,
			path:      r.URL.Path,
			query:     r.URL.RawQuery,
			auth:      r.Header.Get("Authorization"),
			requestID: r.Header.Get("X-Request-ID"),
			body:      string(b),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Add("Set-Cookie", "a=1")
		w.Header().Add("Set-Cookie", "b=2")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ok":true}`)
	})
}

func TestProxyRoundTrip(t *testing.T) {
	var s seen
	p := New(echoHandler(&s))

	req := events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodPost,
		Path:                  "/api/summarize/",
		Headers:               map[string]string{"Authorization": "Bearer t"},
		QueryStringParameters: map[string]string{"verbose": "1"},
		Body:                  `{"text":"hi"}`,
	}
	req.RequestContext.RequestID = "apigw-1"
	req.RequestContext.DomainName = "abc123.execute-api.us-east-1.amazonaws.com"

	res, err := p.Handle(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	want := seen{method: "POST", path: "/api/summarize/", query: "verbose=1", auth: "Bearer t", requestID: "apigw-1", body: `{"text":"hi"}`}
	if s != want {
		t.Errorf("handler saw %+v, want %+v", s, want)
	}
	if res.StatusCode != http.StatusCreated || res.Body != `{"ok":true}` || res.IsBase64Encoded {
		t.Errorf("response = %+v", res)
	}
	h := http.Header(res.MultiValueHeaders)
	if h.Get("Content-Type") != "application/json" || h.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("headers = %v", res.MultiValueHeaders)
	}
	if got := h.Values("Set-Cookie"); len(got) != 2 {
		t.Errorf("Set-Cookie = %v", got)
	}
}

func TestProxyKeepsCallerRequestID(t *testing.T) {
	var s seen
	req := events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/ping",
		Headers:    map[string]string{"x-request-id": "client-7"},
	}
	req.RequestContext.RequestID = "apigw-2"

	if _, err := New(echoHandler(&s)).Handle(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	if s.requestID != "client-7" {
		t.Errorf("X-Request-ID = %q, want client-7", s.requestID)
	}
	if len(req.Headers) != 1 {
		t.Errorf("caller's headers were modified: %v", req.Headers)
	}
}

func TestProxyBase64Bodies(t *testing.T) {
	var got []byte
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte{0xff, 0x00})
	})

	payload := []byte{0x00, 0x01, 0xfe}
	res, err := New(h).Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/upload/",
		Body:            base64.StdEncoding.EncodeToString(payload),
		IsBase64Encoded: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(payload) {
		t.Errorf("handler got %v", got)
	}
	if !res.IsBase64Encoded || res.Body != base64.StdEncoding.EncodeToString([]byte{0xff, 0x00}) {
		t.Errorf("response = %+v", res)
	}
}

func TestProxyBadBase64(t *testing.T) {
	res, err := New(http.NotFoundHandler()).Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/upload/",
		Body:            "%%%",
		IsBase64Encoded: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d", res.StatusCode)
	}
}
