// Package lambdaproxy serves API Gateway proxy events through an
// http.Handler.
package lambdaproxy

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

// Proxy adapts an http.Handler to the API Gateway REST proxy integration.
type Proxy struct {
	adapter *httpadapter.HandlerAdapter
}

func New(handler http.Handler) *Proxy {
	return &Proxy{adapter: httpadapter.New(handler)}
}

// Handle is shaped for lambda.Start.
func (p *Proxy) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.IsBase64Encoded {
		if _, err := base64.StdEncoding.DecodeString(req.Body); err != nil {
			return errorResponse(http.StatusBadRequest, "Malformed request body"), nil
		}
	}

	res, err := p.adapter.ProxyWithContext(ctx, withRequestID(req))
	if err != nil {
		return res, err
	}
	if res.MultiValueHeaders == nil {
		res.MultiValueHeaders = map[string][]string{}
	}
	res.MultiValueHeaders["Access-Control-Allow-Origin"] = []string{"*"}
	return res, nil
}

// withRequestID forwards the gateway's request id as X-Request-ID unless the
// caller sent one.
func withRequestID(req events.APIGatewayProxyRequest) events.APIGatewayProxyRequest {
	id := req.RequestContext.RequestID
	if id == "" {
		return req
	}
	for k := range req.Headers {
		if http.CanonicalHeaderKey(k) == "X-Request-Id" {
			return req
		}
	}
	for k := range req.MultiValueHeaders {
		if http.CanonicalHeaderKey(k) == "X-Request-Id" {
			return req
		}
	}

	headers := make(map[string]string, len(req.Headers)+1)
	for k, v := range req.Headers {
		headers[k] = v
	}
	headers["X-Request-ID"] = id
	req.Headers = headers
	if len(req.MultiValueHeaders) > 0 {
		mv := make(map[string][]string, len(req.MultiValueHeaders)+1)
		for k, v := range req.MultiValueHeaders {
			mv[k] = v
		}
		mv["X-Request-ID"] = []string{id}
		req.MultiValueHeaders = mv
	}
	return req
}

func errorResponse(status int, msg string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		MultiValueHeaders: map[string][]string{
			"Content-Type":                {"application/json"},
			"Access-Control-Allow-Origin": {"*"},
		},
		Body: string(body),
	}
}
