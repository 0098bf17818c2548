package config

import (
	"errors"  // For validation failures
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"strings" // For list parsing
	"time"    // For token lifetime

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort      string        // Application port
	ServiceName  string        // Service name reported to telemetry and events
	DBDriver     string        // Database driver: mysql, postgres or sqlite
	DBUser       string        // Database user
	DBPassword   string        // Database password
	DBHost       string        // Database host
	DBPort       string        // Database port
	DBName       string        // Database name (file path for sqlite)
	AutoMigrate  bool          // Run schema migration on server boot
	JWTSecret    string        // JWT secret key
	JWTTTL       time.Duration // Identity token lifetime
	RedisAddr    string        // Redis server address, empty disables caching
	RedisPass    string        // Redis password
	RedisDB      int           // Redis database number
	KafkaBrokers []string      // Kafka brokers for order events, empty disables publishing
	KafkaTopic   string        // Kafka topic for order events
	CORSOrigins  []string      // Allowed browser origins
	OTLPEndpoint string        // OTLP gRPC collector endpoint
	OTelStdout   bool          // Print spans to stdout when no collector is configured
	IsProd       bool          // Is production environment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	ttl, err := time.ParseDuration(getEnv("JWT_TTL", "8760h"))
	if err != nil {
		ttl = 365 * 24 * time.Hour // Fall back to one year
	}
	return &Config{
		AppPort:      getEnv("APP_PORT", "9000"),                                                       // Application port
		ServiceName:  getEnv("SERVICE_NAME", "marketplace"),                                            // Service name
		DBDriver:     strings.ToLower(getEnv("DB_DRIVER", "mysql")),                                    // Database driver
		DBUser:       os.Getenv("DB_USER"),                                                             // Database user
		DBPassword:   os.Getenv("DB_PASSWORD"),                                                         // Database password
		DBHost:       os.Getenv("DB_HOST"),                                                             // Database host
		DBPort:       os.Getenv("DB_PORT"),                                                             // Database port
		DBName:       os.Getenv("DB_NAME"),                                                             // Database name
		AutoMigrate:  os.Getenv("AUTO_MIGRATE") == "true",                                              // Migrate on boot
		JWTSecret:    os.Getenv("JWT_SECRET"),                                                          // JWT secret key
		JWTTTL:       ttl,                                                                              // Token lifetime
		RedisAddr:    os.Getenv("REDIS_ADDR"),                                                          // Redis server address
		RedisPass:    os.Getenv("REDIS_PASS"),                                                          // Redis password
		RedisDB:      redisDB,                                                                          // Redis database number
		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),                                            // Kafka brokers
		KafkaTopic:   getEnv("KAFKA_TOPIC", "marketplace.orders"),                                      // Kafka topic
		CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:5174")), // Browser origins
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),                                         // OTLP endpoint
		OTelStdout:   os.Getenv("OTEL_STDOUT") == "true",                                               // Stdout spans
		IsProd:       os.Getenv("IS_PROD") == "true",                                                   // Is production environment
	}
}

// Validate reports settings the server cannot run without
func (c *Config) Validate() error {
	// An empty key would sign tokens anyone can forge
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required") // Refuse to boot
	}
	return nil
}

// getEnv returns the variable or def when it is unset or blank
func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// splitList parses a comma separated list, dropping empty entries
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
