// Copyright (c) Microsoft. All rights reserved.

package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// TokenScope is the Entra ID scope for Foundry project endpoints.
const TokenScope = "https://ai.azure.com/.default"

// transport is an unexported interface for HTTP communication.
// The default implementation uses net/http; tests inject a mock http.Client.
type transport interface {
	do(ctx context.Context, method, path string, query url.Values, body any, out any) error
	upload(ctx context.Context, path string, fields map[string]string, fileName string, content io.Reader, out any) error
}

type httpTransport struct {
	client     *http.Client
	baseURL    string
	apiVersion string
	apiKey     string
	credential azcore.TokenCredential
}

func (t *httpTransport) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := t.newRequest(ctx, method, path, query, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return t.send(req, out)
}

func (t *httpTransport) upload(ctx context.Context, path string, fields map[string]string, fileName string, content io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copy file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := t.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return t.send(req, out)
}

func (t *httpTransport) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	q := url.Values{}
	for k, v := range query {
		q[k] = v
	}
	q.Set("api-version", t.apiVersion)

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path+"?"+q.Encode(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	if t.credential != nil {
		token, err := t.credential.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{TokenScope}})
		if err != nil {
			return nil, fmt.Errorf("%w: get azure token: %v", af.ErrAuth, err)
		}
		req.Header.Set("Authorization", "Bearer "+token.Token)
	} else if t.apiKey != "" {
		req.Header.Set("api-key", t.apiKey)
	}
	return req, nil
}

func (t *httpTransport) send(req *http.Request, out any) error {
	slog.DebugContext(req.Context(), "foundry request", "method", req.Method, "path", req.URL.Path)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: http request: %w", af.ErrService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s %s: %v", af.ErrInvalidResponse, req.Method, req.URL.Path, err)
	}
	return nil
}

// parseErrorResponse reads an error response body and returns a typed error.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var apiErr struct {
		Error struct {
			Message string `json:"message"`
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
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		svcErr.Err = af.ErrAuth
	case http.StatusNotFound:
		svcErr.Err = af.ErrNotFound
	case http.StatusBadRequest:
		svcErr.Err = af.ErrInvalidRequest
	default:
		svcErr.Err = af.ErrService
	}
	return svcErr
}
