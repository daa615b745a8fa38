// Copyright (c) Microsoft. All rights reserved.

package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backend selects the service that hosts the agents.
type Backend string

const (
	BackendFoundry Backend = "foundry"
	BackendOpenAI  Backend = "openai"
)

// Settings holds the process settings read from the environment.
type Settings struct {
	// Server
	HTTPAddr       string
	RequestTimeout time.Duration
	RateLimitRPS   float64

	// Agents
	AgentConfigFile    string
	Backend            Backend
	APIKey             string
	FoundryAPIVersion  string
	OpenAIAPIVersion   string
	FilesDir           string
	MaxApprovalRounds  int
	MaxToolIterations  int
	ApprovalPolicyFile string

	// Thread state
	ThreadStore    string
	ThreadStoreDir string
	RedisAddr      string
	RedisPrefix    string
	RedisTTL       time.Duration
	SQLDriver      string
	SQLDSN         string
	MongoURI       string
	MongoDatabase  string

	// Chat history of locally managed threads
	HistoryStore  string
	HistoryWindow int

	// Agent2Agent endpoint. Disabled when both the id and the type are empty.
	A2AAgentID          string
	A2AAgentType        string
	A2AAgentName        string
	A2AAgentDescription string
	A2ABaseURL          string

	Debug bool
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored and variables already set win.
func LoadEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// LoadSettings reads the settings from environment variables.
func LoadSettings() *Settings {
	return &Settings{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 120000)) * time.Millisecond,
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),

		AgentConfigFile:    getEnv("AGENT_CONFIG_FILE", "agents.yaml"),
		Backend:            Backend(getEnv("AGENT_BACKEND", string(BackendFoundry))),
		APIKey:             getEnv("AZURE_API_KEY", ""),
		FoundryAPIVersion:  getEnv("FOUNDRY_API_VERSION", ""),
		OpenAIAPIVersion:   getEnv("AZURE_OPENAI_API_VERSION", "2024-10-21"),
		FilesDir:           getEnv("FILES_DIR", "Files"),
		MaxApprovalRounds:  getEnvInt("MAX_APPROVAL_ROUNDS", 8),
		MaxToolIterations:  getEnvInt("MAX_TOOL_ITERATIONS", 40),
		ApprovalPolicyFile: getEnv("APPROVAL_POLICY_FILE", ""),

		ThreadStore:    getEnv("THREAD_STORE", "file"),
		ThreadStoreDir: getEnv("THREAD_STORE_DIR", "."),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPrefix:    getEnv("REDIS_PREFIX", "agents"),
		RedisTTL:       time.Duration(getEnvInt("REDIS_TTL_SECONDS", 0)) * time.Second,
		SQLDriver:      getEnv("SQL_DRIVER", "sqlite"),
		SQLDSN:         getEnv("SQL_DSN", "threads.db"),
		MongoURI:       getEnv("MONGO_URI", ""),
		MongoDatabase:  getEnv("MONGO_DATABASE", "agents"),

		HistoryStore:  getEnv("CHAT_HISTORY_STORE", "inline"),
		HistoryWindow: getEnvInt("CHAT_HISTORY_WINDOW", 10),

		A2AAgentID:          getEnv("A2A_AGENT_ID", ""),
		A2AAgentType:        getEnv("A2A_AGENT_TYPE", ""),
		A2AAgentName:        getEnv("A2A_AGENT_NAME", "GlobalAgent"),
		A2AAgentDescription: getEnv("A2A_AGENT_DESCRIPTION", "A global agent that can answer questions about any topic."),
		A2ABaseURL:          getEnv("A2A_BASE_URL", ""),

		Debug: getEnvBool("DEBUG", false),
	}
}

// LogLevel is debug when DEBUG is set, info otherwise.
func (s *Settings) LogLevel() slog.Level {
	if s.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		return true
	}
	return defaultVal
}
