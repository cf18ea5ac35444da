package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	LLM         LLMConfig
	Sandbox     SandboxConfig
	Asset       AssetConfig
	Preview     PreviewConfig
}

type LLMConfig struct {
	Model      string
	TokenCap   int
	MaxRetries int
	RPS        float64
	Burst      int
}

type SandboxConfig struct {
	Root           string
	CompileTimeout time.Duration
	InstallTimeout time.Duration
}

type AssetConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type PreviewConfig struct {
	Root       string
	MaxEntries int
	TTL        time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	cfg := &Config{
		Port:        *port,
		Env:         env,
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		LLM:         loadLLMConfig(),
		Sandbox:     loadSandboxConfig(),
		Asset:       loadAssetConfig(env),
		Preview:     loadPreviewConfig(),
	}
	if strings.EqualFold(env, "local") {
		applyLocalDefaults(cfg)
	}
	return cfg, nil
}

func loadLLMConfig() LLMConfig {
	return LLMConfig{
		Model:      firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_MODEL")), "gemini-2.5-flash"),
		TokenCap:   envInt("LLM_TOKEN_CAP", 12000),
		MaxRetries: envInt("GENERATION_MAX_RETRIES", 2),
		RPS:        envFloat("LLM_RPS", 0),
		Burst:      envInt("LLM_BURST", 1),
	}
}

func loadSandboxConfig() SandboxConfig {
	root := strings.TrimSpace(os.Getenv("SANDBOX_ROOT"))
	if root == "" {
		root = filepath.Join(os.TempDir(), "reelsmith-template")
	}
	return SandboxConfig{
		Root:           root,
		CompileTimeout: envDuration("SANDBOX_COMPILE_TIMEOUT", 15*time.Second),
		InstallTimeout: envDuration("SANDBOX_INSTALL_TIMEOUT", 5*time.Minute),
	}
}

func loadAssetConfig(env string) AssetConfig {
	endpoint := resolveAssetEndpoint(env)
	return AssetConfig{
		Enabled:   strings.EqualFold(strings.TrimSpace(env), "local") || endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_S3_BUCKET")), "reelsmith-assets"),
		UseSSL:    resolveAssetUseSSL(env),
	}
}

func loadPreviewConfig() PreviewConfig {
	root := strings.TrimSpace(os.Getenv("PREVIEW_CACHE_ROOT"))
	if root == "" {
		root = filepath.Join(os.TempDir(), "reelsmith-previews")
	}
	return PreviewConfig{
		Root:       root,
		MaxEntries: envInt("PREVIEW_CACHE_MAX_ENTRIES", 128),
		TTL:        envDuration("PREVIEW_CACHE_TTL", 24*time.Hour),
	}
}

func resolveAssetEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("ASSET_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("ASSET_S3_ENDPOINT"))
}

func resolveAssetUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ASSET_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
