// Copyright (c) Microsoft. All rights reserved.

package openai

import (
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// clientConfig holds resolved configuration for the OpenAI client.
type clientConfig struct {
	baseURL         string
	apiVersion      string
	azure           bool
	httpClient      *http.Client
	headers         map[string]string
	model           string
	azureCredential azcore.TokenCredential
}

// Option configures an OpenAI [Client].
type Option func(*clientConfig)

// WithBaseURL overrides the API base URL (e.g., for proxies).
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithAzureDeployment targets an Azure OpenAI deployment. Requests go to
// {endpoint}/openai/deployments/{deployment} with the api-version query, and
// the API key travels in the api-key header.
func WithAzureDeployment(endpoint, deployment, apiVersion string) Option {
	return func(c *clientConfig) {
		c.baseURL = strings.TrimRight(endpoint, "/") + "/openai/deployments/" + deployment
		c.apiVersion = apiVersion
		c.azure = true
		if c.model == "" {
			c.model = deployment
		}
	}
}

// WithHTTPClient provides a custom http.Client for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = client }
}

// WithHeaders adds custom headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *clientConfig) { c.headers = headers }
}

// WithModel sets the default model for requests.
func WithModel(model string) Option {
	return func(c *clientConfig) { c.model = model }
}

// WithAzureCredential enables Azure AD token authentication using the provided credential.
// When set, the client will obtain and refresh tokens automatically instead of using API keys.
func WithAzureCredential(cred azcore.TokenCredential) Option {
	return func(c *clientConfig) { c.azureCredential = cred }
}
