package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	PresignTTLMin int

	MetadataServiceURL   string
	LockServiceURL       string
	IDServiceURL         string
	ProvenanceServiceURL string

	EventChannel string

	TempBase       string
	Namespace      string
	GreenZoneLabel string
	CoreZoneLabel  string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppMode: getEnv("APP_MODE", "debug"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		S3Region:      getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:    getEnv("S3_ENDPOINT", ""),
		S3AccessKey:   getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:   getEnv("S3_SECRET_KEY", ""),
		PresignTTLMin: getEnvAsInt("PRESIGN_TTL_MIN", 60),

		MetadataServiceURL:   getEnv("METADATA_SERVICE_URL", "http://metadata.utility:5062/v1/"),
		LockServiceURL:       getEnv("LOCK_SERVICE_URL", "http://dataops.utility:5063/v2/"),
		IDServiceURL:         getEnv("ID_SERVICE_URL", "http://common.utility:5062/v1/"),
		ProvenanceServiceURL: getEnv("PROVENANCE_SERVICE_URL", "http://provenance.utility:5077/v1/"),

		EventChannel: getEnv("EVENT_CHANNEL", "pipeline.data_uploaded"),

		TempBase:       getEnv("TEMP_BASE", "/tmp/upload"),
		Namespace:      getEnv("NAMESPACE", "greenroom"),
		GreenZoneLabel: getEnv("GREEN_ZONE_LABEL", "Greenroom"),
		CoreZoneLabel:  getEnv("CORE_ZONE_LABEL", "Core"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
