// Copyright (c) Microsoft. All rights reserved.

package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	af "github.com/microsoft/foundry-agents/go/agentframework"
	"github.com/microsoft/foundry-agents/go/internal/config"
)

const sample = `
agentConfiguration:
  deploymentName: TEST_DEPLOYMENT
  endpoint: TEST_ENDPOINT
  agents:
    GlobalAgent:
      name: GlobalAgent
      instructions: You are a helpful assistant.
    ProductSearchAgent:
      name: ProductSearchAgent
      instructions: Answer from the product catalog.
      tools:
        vectorStores:
          vectorStoreId: vs_products
          maxNumResults: 5
    SupportAgent:
      name: SupportAgent
      instructions: Help customers.
      tools:
        vectorStores:
          vectorStoreId: vs_faq
        functions: [CustomerTools]
  vectorStores:
    - vectorStoreName: products
      enabled: true
      cleanVectorStore: true
      files:
        - filePath: catalog.md
    - vectorStoreName: disabled
      enabled: false
`

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	global, err := cfg.GetAgent(string(config.GlobalAgent))
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful assistant.", global.Instructions)
	assert.Nil(t, global.Tools)

	product, err := cfg.GetAgent(string(config.ProductSearchAgent))
	require.NoError(t, err)
	require.NotNil(t, product.Tools.VectorStores)
	assert.Equal(t, "vs_products", product.Tools.VectorStores.VectorStoreID)
	assert.Equal(t, 5, product.Tools.VectorStores.MaxNumResults)

	support, err := cfg.GetAgent("SupportAgent")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultMaxNumResults, support.Tools.VectorStores.MaxNumResults)
	assert.Equal(t, []string{"CustomerTools"}, support.Tools.Functions)

	enabled := cfg.EnabledVectorStores()
	require.Len(t, enabled, 1)
	assert.Equal(t, "products", enabled[0].VectorStoreName)
	assert.True(t, enabled[0].CleanVectorStore)
	assert.Equal(t, "catalog.md", enabled[0].Files[0].FilePath)
}

func TestGetAgent_Unknown(t *testing.T) {
	cfg, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	_, err = cfg.GetAgent("NopeAgent")
	require.ErrorIs(t, err, config.ErrAgentNotConfigured)
	assert.Contains(t, err.Error(), "Agent 'NopeAgent' is not found in the configuration.")
}

func TestParse_MissingSection(t *testing.T) {
	for _, doc := range []string{"", "other: {}\n", "agentConfiguration: {}\n"} {
		_, err := config.Parse([]byte(doc))
		require.ErrorIs(t, err, config.ErrMissingSection, "doc %q", doc)
		assert.True(t, errors.Is(err, af.ErrConfiguration))
		assert.Contains(t, err.Error(), "The configuration section 'agentConfiguration' is missing or empty.")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agents.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Agents, 3)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, config.ErrMissingSection)
}

func TestEnvironmentLookups(t *testing.T) {
	cfg, err := config.Parse([]byte(sample))
	require.NoError(t, err)

	t.Setenv("TEST_DEPLOYMENT", "")
	_, err = cfg.GetDeploymentName()
	require.ErrorIs(t, err, config.ErrEnvNotSet)
	assert.Contains(t, err.Error(), "Environment variable 'TEST_DEPLOYMENT' is not set.")

	t.Setenv("TEST_DEPLOYMENT", "gpt-4o")
	name, err := cfg.GetDeploymentName()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", name)

	t.Setenv("TEST_ENDPOINT", "not a uri")
	_, err = cfg.GetEndpointURL()
	require.ErrorIs(t, err, af.ErrConfiguration)
	assert.Contains(t, err.Error(), "The endpoint 'not a uri' is not a valid URI.")

	t.Setenv("TEST_ENDPOINT", "https://example.services.ai.azure.com/api/projects/p1")
	u, err := cfg.GetEndpointURL()
	require.NoError(t, err)
	assert.Equal(t, "example.services.ai.azure.com", u.Host)
}

func TestLoadSettings(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("MAX_APPROVAL_ROUNDS", "3")
	t.Setenv("MAX_TOOL_ITERATIONS", "")
	t.Setenv("CHAT_HISTORY_STORE", "mongo")
	t.Setenv("CHAT_HISTORY_WINDOW", "")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("REDIS_TTL_SECONDS", "60")
	t.Setenv("THREAD_STORE", "redis")
	t.Setenv("DEBUG", "1")
	t.Setenv("AGENT_BACKEND", "")
	t.Setenv("A2A_AGENT_ID", "asst_1")
	t.Setenv("A2A_AGENT_NAME", "")

	s := config.LoadSettings()
	assert.Equal(t, ":9090", s.HTTPAddr)
	assert.Equal(t, 3, s.MaxApprovalRounds)
	assert.Equal(t, 40, s.MaxToolIterations)
	assert.Equal(t, "mongo", s.HistoryStore)
	assert.Equal(t, 10, s.HistoryWindow)
	assert.InDelta(t, 2.5, s.RateLimitRPS, 0.001)
	assert.Equal(t, time.Minute, s.RedisTTL)
	assert.Equal(t, "redis", s.ThreadStore)
	assert.Equal(t, config.BackendFoundry, s.Backend)
	assert.Equal(t, "asst_1", s.A2AAgentID)
	assert.Equal(t, "GlobalAgent", s.A2AAgentName)
	assert.True(t, s.Debug)
	assert.Equal(t, "DEBUG", s.LogLevel().String())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CONFIG_TEST_FROM_DOTENV=yes\n"), 0o644))
	t.Setenv("CONFIG_TEST_FROM_DOTENV", "")
	require.NoError(t, os.Unsetenv("CONFIG_TEST_FROM_DOTENV"))

	config.LoadEnv(path)
	assert.Equal(t, "yes", os.Getenv("CONFIG_TEST_FROM_DOTENV"))

	config.LoadEnv(filepath.Join(dir, "missing.env"))
}
