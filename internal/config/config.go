// Copyright (c) Microsoft. All rights reserved.

// Package config loads the agent role configuration from YAML and the
// service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	af "github.com/microsoft/foundry-agents/go/agentframework"
)

// SectionName is the top-level YAML key holding the agent configuration.
const SectionName = "agentConfiguration"

// DefaultMaxNumResults is the file search result limit when a vector store
// binding does not set one.
const DefaultMaxNumResults = 10

// AgentType names a configured agent role.
type AgentType string

const (
	GlobalAgent             AgentType = "GlobalAgent"
	GeographyAgent          AgentType = "GeographyAgent"
	MathAgent               AgentType = "MathAgent"
	OrchestratorAgent       AgentType = "OrchestratorAgent"
	ProductSearchAgent      AgentType = "ProductSearchAgent"
	BookRecommendationAgent AgentType = "BookRecommendationAgent"
)

var (
	// ErrMissingSection is returned when the agentConfiguration section is absent or empty.
	ErrMissingSection = fmt.Errorf("%w: The configuration section '%s' is missing or empty. Please ensure it exists in your configuration file.",
		af.ErrConfiguration, SectionName)

	// ErrAgentNotConfigured is returned by [AgentConfiguration.GetAgent] for unknown roles.
	ErrAgentNotConfigured = fmt.Errorf("%w: agent not configured", af.ErrConfiguration)

	// ErrEnvNotSet is returned when an environment variable named by the configuration is unset.
	ErrEnvNotSet = fmt.Errorf("%w: environment variable not set", af.ErrConfiguration)
)

// AgentConfiguration is the root of the agent configuration. DeploymentName
// and Endpoint hold the names of environment variables, not their values.
type AgentConfiguration struct {
	DeploymentName string                   `yaml:"deploymentName"`
	Endpoint       string                   `yaml:"endpoint"`
	Agents         map[string]AgentSettings `yaml:"agents"`
	VectorStores   []VectorStoreSettings    `yaml:"vectorStores"`
}

// AgentSettings configures one agent role.
type AgentSettings struct {
	Name         string              `yaml:"name"`
	Instructions string              `yaml:"instructions"`
	Tools        *AgentToolsSettings `yaml:"tools"`
}

// AgentToolsSettings lists the tools of a role. Functions names tool tables
// registered in the tools package.
type AgentToolsSettings struct {
	VectorStores *AgentVectorStoresSettings `yaml:"vectorStores"`
	Functions    []string                   `yaml:"functions"`
}

// AgentVectorStoresSettings binds a role to a vector store for file search.
type AgentVectorStoresSettings struct {
	VectorStoreID string `yaml:"vectorStoreId"`
	MaxNumResults int    `yaml:"maxNumResults"`
}

// UnmarshalYAML applies [DefaultMaxNumResults] when maxNumResults is omitted.
func (s *AgentVectorStoresSettings) UnmarshalYAML(node *yaml.Node) error {
	type plain AgentVectorStoresSettings
	p := plain{MaxNumResults: DefaultMaxNumResults}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*s = AgentVectorStoresSettings(p)
	return nil
}

// VectorStoreSettings describes a vector store initialized at startup.
type VectorStoreSettings struct {
	VectorStoreName                            string                    `yaml:"vectorStoreName"`
	VectorStoreID                              string                    `yaml:"vectorStoreId"`
	VectorStoreDescription                     string                    `yaml:"vectorStoreDescription"`
	Enabled                                    bool                      `yaml:"enabled"`
	CleanVectorStore                           bool                      `yaml:"cleanVectorStore"`
	CleanVectorStoreAndRemoveFilesFromDatasets bool                      `yaml:"cleanVectorStoreAndRemoveFilesFromDatasets"`
	Files                                      []VectorStoreFileSettings `yaml:"files"`
}

// VectorStoreFileSettings points at a file to upload, relative to the files directory.
type VectorStoreFileSettings struct {
	FilePath string `yaml:"filePath"`
}

// Load reads the agent configuration from a YAML file.
func Load(path string) (*AgentConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w (file %s not found)", ErrMissingSection, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", af.ErrConfiguration, path, err)
	}
	return Parse(data)
}

// Parse decodes the agent configuration from YAML.
func Parse(data []byte) (*AgentConfiguration, error) {
	var doc struct {
		Section *AgentConfiguration `yaml:"agentConfiguration"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %w", af.ErrConfiguration, err)
	}
	if doc.Section == nil || doc.Section.empty() {
		return nil, ErrMissingSection
	}
	return doc.Section, nil
}

func (c *AgentConfiguration) empty() bool {
	return c.DeploymentName == "" && c.Endpoint == "" && len(c.Agents) == 0 && len(c.VectorStores) == 0
}

// GetDeploymentName resolves the model deployment name from the environment.
func (c *AgentConfiguration) GetDeploymentName() (string, error) {
	return lookupEnv(c.DeploymentName)
}

// GetEndpoint resolves the service endpoint from the environment.
func (c *AgentConfiguration) GetEndpoint() (string, error) {
	return lookupEnv(c.Endpoint)
}

// GetEndpointURL resolves the endpoint and checks that it is an absolute URL.
func (c *AgentConfiguration) GetEndpointURL() (*url.URL, error) {
	endpoint, err := c.GetEndpoint()
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: The endpoint '%s' is not a valid URI.", af.ErrConfiguration, endpoint)
	}
	return u, nil
}

// GetAgent returns the settings of a role.
func (c *AgentConfiguration) GetAgent(role string) (AgentSettings, error) {
	s, ok := c.Agents[role]
	if !ok {
		return AgentSettings{}, fmt.Errorf("%w: Agent '%s' is not found in the configuration.", ErrAgentNotConfigured, role)
	}
	return s, nil
}

// EnabledVectorStores returns the vector stores marked enabled, in file order.
func (c *AgentConfiguration) EnabledVectorStores() []VectorStoreSettings {
	var out []VectorStoreSettings
	for _, vs := range c.VectorStores {
		if vs.Enabled {
			out = append(out, vs)
		}
	}
	return out
}

func lookupEnv(name string) (string, error) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w: Environment variable '%s' is not set.", ErrEnvNotSet, name)
}
