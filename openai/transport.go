// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	af "github.com/microsoft/foundry-agents/go/agentframework"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	cognitiveScope   = "https://cognitiveservices.azure.com/.default"
	apiVersionParam  = "api-version"
	azureKeyHeader   = "api-key"
	contentTypeJSON  = "application/json"
	authorizationHdr = "Authorization"
)

// transport is an unexported interface for HTTP communication.
// The default implementation uses net/http; tests inject a mock.
type transport interface {
	do(ctx context.Context, method, path string, body any) (*http.Response, error)
}

// httpTransport is the default transport using net/http.
type httpTransport struct {
	client          *http.Client
	baseURL         string
	apiVersion      string
	azure           bool
	apiKey          string
	headers         map[string]string
	azureCredential azcore.TokenCredential
}

func newHTTPTransport(apiKey string, opts *clientConfig) *httpTransport {
	t := &httpTransport{
		client:          opts.httpClient,
		baseURL:         opts.baseURL,
		apiVersion:      opts.apiVersion,
		azure:           opts.azure,
		apiKey:          apiKey,
		headers:         opts.headers,
		azureCredential: opts.azureCredential,
	}
	if t.client == nil {
		t.client = http.DefaultClient
	}
	if t.baseURL == "" {
		t.baseURL = defaultBaseURL
	}
	return t
}

func (t *httpTransport) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	target := t.baseURL + path
	if t.apiVersion != "" {
		target += "?" + url.Values{apiVersionParam: {t.apiVersion}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)

	switch {
	case t.azureCredential != nil:
		slog.DebugContext(ctx, "acquiring Azure AD token for Cognitive Services")
		token, err := t.azureCredential.GetToken(ctx, policy.TokenRequestOptions{
			Scopes: []string{cognitiveScope},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: get azure token: %v", af.ErrAuth, err)
		}
		req.Header.Set(authorizationHdr, "Bearer "+token.Token)
	case t.azure:
		req.Header.Set(azureKeyHeader, t.apiKey)
	default:
		if _, ok := t.headers[azureKeyHeader]; !ok {
			req.Header.Set(authorizationHdr, "Bearer "+t.apiKey)
		}
	}

	for k, v := range t.headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", af.ErrService, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseErrorResponse(resp)
	}

	return resp, nil
}

// parseErrorResponse reads an error response body and returns a typed error.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &apiErr)

	msg := apiErr.Error.Message
	if msg == "" {
		msg = string(body)
	}

	svcErr := &af.ServiceError{
		StatusCode: resp.StatusCode,
		Message:    msg,
		Code:       apiErr.Error.Code,
	}

	switch {
	case apiErr.Error.Code == "content_filter":
		svcErr.Err = af.ErrContentFilter
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		svcErr.Err = af.ErrAuth
	case resp.StatusCode == http.StatusNotFound:
		svcErr.Err = af.ErrNotFound
	case resp.StatusCode == http.StatusBadRequest:
		svcErr.Err = af.ErrInvalidRequest
	default:
		svcErr.Err = af.ErrService
	}

	return svcErr
}
