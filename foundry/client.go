// Copyright (c) Microsoft. All rights reserved.

package foundry

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

const (
	// DefaultAPIVersion is the Persistent Agents API version sent when none is configured.
	DefaultAPIVersion = "2025-05-01"

	// DefaultPollInterval is the delay between run status checks.
	DefaultPollInterval = 500 * time.Millisecond
)

// Client talks to the Persistent Agents REST API of one Foundry project.
type Client struct {
	tp           transport
	pollInterval time.Duration
}

type clientConfig struct {
	apiKey       string
	apiVersion   string
	credential   azcore.TokenCredential
	httpClient   *http.Client
	pollInterval time.Duration
}

// Option configures a [Client].
type Option func(*clientConfig)

// WithAPIKey authenticates with a project API key sent in the api-key header.
func WithAPIKey(key string) Option {
	return func(c *clientConfig) { c.apiKey = key }
}

// WithCredential authenticates with Entra ID bearer tokens.
func WithCredential(cred azcore.TokenCredential) Option {
	return func(c *clientConfig) { c.credential = cred }
}

// WithAPIVersion overrides [DefaultAPIVersion].
func WithAPIVersion(v string) Option {
	return func(c *clientConfig) { c.apiVersion = v }
}

// WithHTTPClient provides a custom http.Client for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithPollInterval overrides [DefaultPollInterval].
func WithPollInterval(d time.Duration) Option {
	return func(c *clientConfig) { c.pollInterval = d }
}

// New creates a Client for the project endpoint, e.g.
// https://<resource>.services.ai.azure.com/api/projects/<project>.
func New(endpoint string, opts ...Option) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: The endpoint '%s' is not a valid URI.", af.ErrConfiguration, endpoint)
	}

	cfg := &clientConfig{
		apiVersion:   DefaultAPIVersion,
		pollInterval: DefaultPollInterval,
	}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = http.DefaultClient
	}

	return &Client{
		tp: &httpTransport{
			client:     cfg.httpClient,
			baseURL:    strings.TrimRight(endpoint, "/"),
			apiVersion: cfg.apiVersion,
			apiKey:     cfg.apiKey,
			credential: cfg.credential,
		},
		pollInterval: cfg.pollInterval,
	}, nil
}
