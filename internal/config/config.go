package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	GinMode          string
	MongoURI         string
	MongoDatabase    string
	RedisAddr        string
	RedisPassword    string
	RabbitMQURI      string
	RabbitMQExchange string
	LLMAPIKey        string
	LLMBaseURL       string
	LLMModel         string
	LLMProvider      string
	ImageAPIKey      string
	ImageSearchCX    string
	ImageSearchURL   string
	JWTSecret        string
	AllowOrigins     []string
	ServiceName      string
	ServiceVersion   string
}

var AppConfig *Config

func LoadConfig() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Port:             getEnvOrDefault("PORT", "8080"),
		GinMode:          getEnvOrDefault("GIN_MODE", "debug"),
		MongoURI:         getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:    getEnvOrDefault("MONGO_DATABASE", "learnpath_service"),
		RedisAddr:        getEnvOrDefault("REDIS_ADDR", ""),
		RedisPassword:    getEnvOrDefault("REDIS_PASSWORD", ""),
		RabbitMQURI:      getEnvOrDefault("RABBITMQ_URI", ""),
		RabbitMQExchange: getEnvOrDefault("RABBITMQ_EXCHANGE", ""),
		LLMAPIKey:        getEnvOrDefault("API_KEY", ""),
		LLMBaseURL:       getEnvOrDefault("BASE_URL", "http://localhost:11434/v1"),
		LLMModel:         getEnvOrDefault("MODEL", "qwen3:1.7b"),
		LLMProvider:      getEnvOrDefault("PROVIDER", "ollama"),
		ImageAPIKey:      getEnvOrDefault("IMAGE_API_KEY", ""),
		ImageSearchCX:    getEnvOrDefault("IMAGE_SEARCH_CX", ""),
		ImageSearchURL:   getEnvOrDefault("IMAGE_SEARCH_URL", "https://www.googleapis.com/customsearch/v1"),
		JWTSecret:        getEnvOrDefault("JWT_SECRET", "your-jwt-secret-key"),
		AllowOrigins:     strings.Split(getEnvOrDefault("ALLOW_ORIGINS", "http://localhost:3000"), ","),
		ServiceName:      getEnvOrDefault("SERVICE_NAME", "learnpath-service"),
		ServiceVersion:   getEnvOrDefault("SERVICE_VERSION", "1.0.0"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
