package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	Env     string
	Gemini  GeminiConfig
	Board   BoardConfig
	Blob    BlobConfig
	Context ContextConfig
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type BoardConfig struct {
	// SnapshotPath backs the file store when DatabaseURL is empty.
	SnapshotPath string
	DatabaseURL  string
}

type BlobConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type ContextConfig struct {
	// MaxBytes caps the serialized board context handed to the
	// assistant; zero means the serializer default.
	MaxBytes int
}

func (b BlobConfig) CanUseS3() bool {
	return strings.TrimSpace(b.Endpoint) != "" &&
		strings.TrimSpace(b.AccessKey) != "" &&
		strings.TrimSpace(b.SecretKey) != "" &&
		strings.TrimSpace(b.Bucket) != ""
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8081", "server port")
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
		Port: *port,
		Env:  env,
		Gemini: GeminiConfig{
			APIKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:  strings.TrimSpace(os.Getenv("GEMINI_MODEL")),
		},
		Board: BoardConfig{
			SnapshotPath: firstNonEmpty(strings.TrimSpace(os.Getenv("BOARD_SNAPSHOT_PATH")), "tmp/board_snapshots.json"),
			DatabaseURL:  strings.TrimSpace(os.Getenv("BOARD_STORE_PG_DSN")),
		},
		Blob:    loadBlobConfig(env),
		Context: loadContextConfig(),
	}
	if err := applyOverlay(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadBlobConfig(env string) BlobConfig {
	endpoint := resolveBlobEndpoint(env)
	return BlobConfig{
		Enabled:   strings.EqualFold(strings.TrimSpace(env), "local") || endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("BLOB_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("BLOB_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("BLOB_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("BLOB_S3_BUCKET")), "ideaboard-media"),
		UseSSL:    resolveBlobUseSSL(env),
	}
}

func resolveBlobEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("BLOB_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("BLOB_S3_ENDPOINT"))
}

func resolveBlobUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("BLOB_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func loadContextConfig() ContextConfig {
	raw := strings.TrimSpace(os.Getenv("BOARD_CONTEXT_MAX_BYTES"))
	if raw == "" {
		return ContextConfig{}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return ContextConfig{}
	}
	return ContextConfig{MaxBytes: n}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
