package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	WebPort string

	ModelDir  string
	UploadDir string
	UploadTTL time.Duration
	// MaxUploadBytes bounds a whole multipart request.
	MaxUploadBytes int64

	PredictURL string

	LogLevel string
	GinMode  string
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("invalid %s=%q, using %s", k, v, def)
		return def
	}
	return d
}

func getInt64(k string, def int64) int64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		log.Printf("invalid %s=%q, using %d", k, v, def)
		return def
	}
	return n
}

// Load reads .env if present and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	port := getEnv("PORT", "8080")
	return &Config{
		Port:    port,
		WebPort: getEnv("WEB_PORT", "8081"),

		ModelDir:       getEnv("MODEL_DIR", "models"),
		UploadDir:      getEnv("UPLOAD_DIR", filepath.Join("static", "uploads")),
		UploadTTL:      getDuration("UPLOAD_TTL", 15*time.Minute),
		MaxUploadBytes: getInt64("MAX_UPLOAD_BYTES", 20<<20),

		PredictURL: getEnv("PREDICT_URL", "http://localhost:"+port+"/predict"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		GinMode:  getEnv("GIN_MODE", "release"),
	}
}

// ModelPaths returns the model and metadata files for a modality, e.g. "oct".
func (c *Config) ModelPaths(name string) (modelPath, metadataPath string) {
	return filepath.Join(c.ModelDir, name+"_model.onnx"),
		filepath.Join(c.ModelDir, name+"_metadata.json")
}
