package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		RollbarToken string
		LogFile      string

		Server    ServerConfig
		Database  DatabaseConfig
		Backend   BackendConfig
		Telemetry TelemetryConfig
		LiveKit   LiveKitConfig
		Images    ImagesConfig
	}

	ServerConfig struct {
		Host               string
		Address            string
		DebugHost          string
		DisableReqLogs     bool
		TrustProxy         bool
		ShutdownTimeout    time.Duration
		JWTExpirationDelta time.Duration
		AllowedOrigins     []string
	}

	// DatabaseConfig is only used when Engine is set; an empty Engine selects the in-memory store.
	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	BackendConfig struct {
		APIURL        string
		ImprinterBase string
		KamikazeBase  string
		IngestionURL  string
	}

	TelemetryConfig struct {
		Endpoint string
		Headers  string
	}

	LiveKitConfig struct {
		URL       string
		APIKey    string
		APISecret string
		AgentName string
		BotURL    string
	}

	ImagesConfig struct {
		APIKey    string
		EngineID  string
		Endpoint  string
		RateLimit float64
	}
)

const (
	DefaultBackendAPIURL  = "http://localhost:8000"
	DefaultImagesEndpoint = "https://www.googleapis.com/customsearch/v1"
)

// Address returns the database "host:port".
func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

// InMemory reports whether no database engine is configured.
func (c DatabaseConfig) InMemory() bool {
	return c.Engine == ""
}

// env var names are the ones the frontend deployment already sets, hence no prefix.
var envBindings = map[string][]string{
	"secretKey":             {"SECRET_KEY"},
	"rollbarToken":          {"ROLLBAR_TOKEN"},
	"logFile":               {"LOG_FILE"},
	"build":                 {"BUILD"},
	"server.host":           {"SERVER_HOST"},
	"server.address":        {"SERVER_ADDRESS"},
	"server.debugHost":      {"SERVER_DEBUG_HOST"},
	"server.allowedOrigins": {"SERVER_ALLOWED_ORIGINS"},
	"server.trustProxy":     {"SERVER_TRUST_PROXY"},
	"database.engine":       {"DATABASE_ENGINE"},
	"database.host":         {"DATABASE_HOST"},
	"database.port":         {"DATABASE_PORT"},
	"database.name":         {"DATABASE_NAME"},
	"database.user":         {"DATABASE_USER"},
	"database.password":     {"DATABASE_PASSWORD"},
	"database.adminUser":    {"DATABASE_ADMIN_USER"},
	"database.adminPass":    {"DATABASE_ADMIN_PASSWORD"},
	"database.disableTLS":   {"DATABASE_DISABLE_TLS"},
	"backend.apiURL":        {"BACKEND_API_URL"},
	"backend.imprinter":     {"NEXT_PUBLIC_IMPRINTER_BASE", "NEXT_PUBLIC_IMPRINTER_URL"},
	"backend.kamikaze":      {"NEXT_PUBLIC_KAMIKAZE_BASE"},
	"backend.ingestion":     {"NEXT_PUBLIC_INGESTION_URL"},
	"telemetry.endpoint":    {"GRAFANA_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"},
	"telemetry.headers":     {"GRAFANA_OTLP_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS"},
	"livekit.url":           {"LIVEKIT_URL"},
	"livekit.apiKey":        {"LIVEKIT_API_KEY"},
	"livekit.apiSecret":     {"LIVEKIT_API_SECRET"},
	"livekit.agentName":     {"LIVEKIT_AGENT_NAME"},
	"livekit.botURL":        {"VOICE_BOT_URL"},
	"images.apiKey":         {"GOOGLE_CSE_API_KEY"},
	"images.engineID":       {"GOOGLE_CSE_CX", "GOOGLE_CSE_ID"},
	"images.endpoint":       {"GOOGLE_CSE_ENDPOINT"},
	"images.rateLimit":      {"IMAGES_RATE_LIMIT"},
}

// NewConfig loads the app Config from the environment (and config/.env.<env> if it exists).
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	if root, ok := projectRoot(); ok {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}

	return newConfig(env, viper.New())
}

func newConfig(env string, v *viper.Viper) *Config {
	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("appName", "Academia")
	if env == "DEV" || env == "TEST" {
		v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	}
	v.SetDefault("build", "develop")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.allowedOrigins", []string{"*"})
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "academia")
	v.SetDefault("backend.apiURL", DefaultBackendAPIURL)
	v.SetDefault("images.endpoint", DefaultImagesEndpoint)
	v.SetDefault("images.rateLimit", 2.0)

	v.SetEnvPrefix(env)
	v.AutomaticEnv()
	for key, names := range envBindings {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     env == "TEST",
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		LogFile:      v.GetString("logFile"),
		Server: ServerConfig{
			Host:               v.GetString("server.host"),
			Address:            v.GetString("server.address"),
			DebugHost:          v.GetString("server.debugHost"),
			DisableReqLogs:     v.GetBool("server.disableReqLogs"),
			TrustProxy:         v.GetBool("server.trustProxy"),
			ShutdownTimeout:    v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta: v.GetDuration("server.jwtExpirationDelta"),
			AllowedOrigins:     v.GetStringSlice("server.allowedOrigins"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPass"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Backend: BackendConfig{
			APIURL:        strings.TrimRight(v.GetString("backend.apiURL"), "/"),
			ImprinterBase: strings.TrimRight(v.GetString("backend.imprinter"), "/"),
			KamikazeBase:  strings.TrimRight(v.GetString("backend.kamikaze"), "/"),
			IngestionURL:  strings.TrimRight(v.GetString("backend.ingestion"), "/"),
		},
		Telemetry: TelemetryConfig{
			Endpoint: strings.TrimRight(v.GetString("telemetry.endpoint"), "/"),
			Headers:  v.GetString("telemetry.headers"),
		},
		LiveKit: LiveKitConfig{
			URL:       v.GetString("livekit.url"),
			APIKey:    v.GetString("livekit.apiKey"),
			APISecret: v.GetString("livekit.apiSecret"),
			AgentName: v.GetString("livekit.agentName"),
			BotURL:    v.GetString("livekit.botURL"),
		},
		Images: ImagesConfig{
			APIKey:    v.GetString("images.apiKey"),
			EngineID:  v.GetString("images.engineID"),
			Endpoint:  v.GetString("images.endpoint"),
			RateLimit: v.GetFloat64("images.rateLimit"),
		},
	}
}

// RequireSecretKey reports a *ConfigError when no JWT signing secret is set.
// Only DEV and TEST fall back to a built-in key.
func (c *Config) RequireSecretKey() error {
	if c.SecretKey == "" {
		return NewConfigError("SECRET_KEY")
	}
	return nil
}

// projectRoot walks up from the working directory until it finds go.mod.
// go-test changes the working directory to the test package being run during tests.
func projectRoot() (string, bool) {
	wd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir, true
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return "", false
		}
		currDir = newDir
	}
}
