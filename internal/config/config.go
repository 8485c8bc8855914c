package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Port        string
	Environment string
	CORSOrigins []string
	RedisURL    string // Optional: enables shared assistant ids and cross-instance session fan-out

	Camara CamaraConfig
	MaaS   MaaSConfig
	Demo   DemoConfig
	Auth   AuthConfig

	PersonaSeedPath string
	AttractionsPath string
	DefaultPersona  string

	OperatorProbeCron string // Empty disables the periodic operator probe
}

// CamaraConfig configures the telco transport
type CamaraConfig struct {
	UseMock      bool
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	MockLatency  time.Duration
	SamplePath   string  // Empty uses the embedded sample responses
	RateLimitRPS float64 // Outbound request budget for live mode

	PopulationDensityURL string
	LocationRetrievalURL string
	SimSwapURL           string
	QoSProfilesURL       string
	QualityOnDemandURL   string

	DensityScope     string
	LocationScope    string
	SimSwapScope     string
	QoSProfilesScope string
	QoSScope         string
}

// MaaSConfig configures the knowledge-base and assistant endpoints
type MaaSConfig struct {
	BaseURL            string
	TenantID           string
	KnowledgeBaseScope string
	AssistantScope     string
	ServiceScope       string
}

// DemoConfig holds the demonstration geofence and phone number used for snapshots
type DemoConfig struct {
	AreaLat          float64
	AreaLon          float64
	AreaRadiusMeters int
	PhoneNumber      string
}

// AuthConfig holds identity token settings
type AuthConfig struct {
	JWTSecret    string
	JWTAlgorithm string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		CORSOrigins: getListEnv("CORS_ORIGINS", []string{
			"http://localhost:3000",
			"http://127.0.0.1:3000",
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}),
		RedisURL: getEnv("REDIS_URL", ""),

		Camara: CamaraConfig{
			UseMock:      getBoolEnv("CAMARA_USE_MOCK", true),
			TokenURL:     getEnv("CAMARA_TOKEN_URL", "https://operator.example.com/oauth2/token"),
			ClientID:     getEnv("CAMARA_CLIENT_ID", ""),
			ClientSecret: getEnv("CAMARA_CLIENT_SECRET", ""),
			Timeout:      time.Duration(getFloatEnv("CAMARA_TIMEOUT_SECONDS", 15) * float64(time.Second)),
			MockLatency:  time.Duration(getIntEnv("CAMARA_MOCK_LATENCY_MS", 40)) * time.Millisecond,
			SamplePath:   getEnv("CAMARA_SAMPLE_PATH", ""),
			RateLimitRPS: getFloatEnv("CAMARA_RATE_LIMIT_RPS", 10),

			PopulationDensityURL: getEnv("CAMARA_POPULATION_DENSITY_URL", "https://operator.example.com/population-density-data/v0/query"),
			LocationRetrievalURL: getEnv("CAMARA_LOCATION_RETRIEVAL_URL", "https://operator.example.com/location-retrieval/v0/retrieve"),
			SimSwapURL:           getEnv("CAMARA_SIM_SWAP_URL", "https://operator.example.com/sim-swap/v0/check"),
			QoSProfilesURL:       getEnv("CAMARA_QOS_PROFILES_URL", "https://operator.example.com/qos-profiles/v0/profiles"),
			QualityOnDemandURL:   getEnv("CAMARA_QOD_URL", "https://operator.example.com/quality-on-demand/v0/sessions"),

			DensityScope:     getEnv("CAMARA_DENSITY_SCOPE", "population-density-data"),
			LocationScope:    getEnv("CAMARA_LOCATION_SCOPE", "location-retrieval"),
			SimSwapScope:     getEnv("CAMARA_SIM_SWAP_SCOPE", "sim-swap"),
			QoSProfilesScope: getEnv("CAMARA_QOS_PROFILES_SCOPE", "qos-profiles"),
			QoSScope:         getEnv("CAMARA_QOS_SCOPE", "quality-on-demand"),
		},

		MaaS: MaaSConfig{
			BaseURL:            getEnv("CAMARA_MAAS_BASE_URL", "https://operator.example.com/maas/v1"),
			TenantID:           getEnv("CAMARA_MAAS_TENANT_ID", "aeterna"),
			KnowledgeBaseScope: getEnv("CAMARA_KNOWLEDGE_BASE_SCOPE", "maas-knowledge-base"),
			AssistantScope:     getEnv("CAMARA_ASSISTANT_SCOPE", "maas-assistant-manage"),
			ServiceScope:       getEnv("CAMARA_SERVICE_SCOPE", "maas-assistant-service"),
		},

		Demo: DemoConfig{
			AreaLat:          getFloatEnv("DEMO_AREA_LAT", -25.3444),
			AreaLon:          getFloatEnv("DEMO_AREA_LON", 131.0369),
			AreaRadiusMeters: getIntEnv("DEMO_AREA_RADIUS_METERS", 5000),
			PhoneNumber:      getEnv("DEMO_PHONE_NUMBER", "+61370000000"),
		},

		Auth: AuthConfig{
			JWTSecret:    getEnv("JWT_SECRET", "change-me-in-production"),
			JWTAlgorithm: getEnv("JWT_ALGORITHM", "HS256"),
		},

		PersonaSeedPath: getEnv("PERSONA_SEED_PATH", ""),
		AttractionsPath: getEnv("ATTRACTIONS_PATH", ""),
		DefaultPersona:  getEnv("DEFAULT_PERSONA", "priya"),

		OperatorProbeCron: getEnv("OPERATOR_PROBE_CRON", "*/5 * * * *"),
	}
}

// Validate rejects configurations that cannot serve requests
func (c *Config) Validate() error {
	if !c.Camara.UseMock {
		if c.Camara.TokenURL == "" {
			return fmt.Errorf("CAMARA_TOKEN_URL is required when CAMARA_USE_MOCK=false")
		}
		if c.Camara.ClientID == "" || c.Camara.ClientSecret == "" {
			return fmt.Errorf("CAMARA_CLIENT_ID and CAMARA_CLIENT_SECRET are required when CAMARA_USE_MOCK=false")
		}
		if c.MaaS.BaseURL == "" || c.MaaS.TenantID == "" {
			return fmt.Errorf("CAMARA_MAAS_BASE_URL and CAMARA_MAAS_TENANT_ID are required when CAMARA_USE_MOCK=false")
		}
	}
	if c.DefaultPersona == "" {
		return fmt.Errorf("DEFAULT_PERSONA must not be empty")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && c.Auth.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// IsProduction reports whether ENVIRONMENT=production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getListEnv parses a comma-separated list, trimming whitespace from each entry
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
