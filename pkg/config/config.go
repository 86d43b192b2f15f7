package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Graph service variants selectable via GRAPH_SERVICE.
const (
	ServiceNeo4j    = "neo4j"
	ServiceEpisodic = "episodic"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string

	// Graph service variant: "neo4j" (deterministic) or "episodic"
	GraphService string

	// Episodic extraction
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	ExtractionModel       string
	EmbeddingModel        string
	ExtractionGroupID     string
	ExtractionMaxEntities int
	ExtractionTemperature float64

	// File layout
	DataDir       string
	QueriesDir    string
	ParametersDir string
	StylesDir     string
	OutputDir     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		Neo4jURI:              getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:             getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:         getEnv("NEO4J_PASSWORD", "password"),
		GraphService:          getEnv("GRAPH_SERVICE", ServiceNeo4j),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:         getEnv("OPENAI_BASE_URL", ""),
		ExtractionModel:       getEnv("EXTRACTION_MODEL", "gpt-4o-mini"),
		EmbeddingModel:        getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		ExtractionGroupID:     getEnv("EXTRACTION_GROUP_ID", "inheritance"),
		ExtractionMaxEntities: getEnvInt("EXTRACTION_MAX_ENTITIES", 5),
		ExtractionTemperature: getEnvFloat("EXTRACTION_TEMPERATURE", 0.0),
		DataDir:               getEnv("DATA_DIR", "data"),
		QueriesDir:            getEnv("QUERIES_DIR", "queries"),
		ParametersDir:         getEnv("PARAMETERS_DIR", "parameters"),
		StylesDir:             getEnv("STYLES_DIR", "styles"),
		OutputDir:             getEnv("OUTPUT_DIR", "output"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.GraphService != ServiceNeo4j && c.GraphService != ServiceEpisodic {
		return fmt.Errorf("GRAPH_SERVICE must be %q or %q", ServiceNeo4j, ServiceEpisodic)
	}
	// The episodic variant cannot construct without model credentials
	if c.GraphService == ServiceEpisodic && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required for the episodic graph service")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
