package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Captcha CaptchaConfig
	Token   TokenConfig
	Email   EmailConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type CaptchaConfig struct {
	Width               int
	Height              int
	BlurSigma           float64
	FontDir             string
	SessionTTL          time.Duration
	CleanupInterval     time.Duration
	MinSolveTime        time.Duration
	WrongTextRetryDelay time.Duration
	BotlikeRetryDelay   time.Duration
}

type TokenConfig struct {
	Secret string
	Expiry time.Duration
}

type EmailConfig struct {
	Provider    string // "ses" or "log"
	AWSRegion   string
	FromAddress string
	ToAddress   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	tokenSecret := getEnv("CAPTCHA_TOKEN_SECRET", "")
	if tokenSecret == "" {
		return nil, fmt.Errorf("CAPTCHA_TOKEN_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Captcha: CaptchaConfig{
			Width:               getEnvAsInt("CAPTCHA_WIDTH", 320),
			Height:              getEnvAsInt("CAPTCHA_HEIGHT", 70),
			BlurSigma:           getEnvAsFloat("CAPTCHA_BLUR_SIGMA", 0.4),
			FontDir:             getEnv("CAPTCHA_FONT_DIR", "fonts"),
			SessionTTL:          getEnvAsDuration("CAPTCHA_SESSION_TTL", 10*time.Minute),
			CleanupInterval:     getEnvAsDuration("CAPTCHA_CLEANUP_INTERVAL", 1*time.Minute),
			MinSolveTime:        getEnvAsDuration("CAPTCHA_MIN_SOLVE_TIME", 1200*time.Millisecond),
			WrongTextRetryDelay: getEnvAsDuration("CAPTCHA_WRONG_TEXT_DELAY", 1500*time.Millisecond),
			BotlikeRetryDelay:   getEnvAsDuration("CAPTCHA_BOTLIKE_DELAY", 2000*time.Millisecond),
		},
		Token: TokenConfig{
			Secret: tokenSecret,
			Expiry: getEnvAsDuration("CAPTCHA_TOKEN_EXPIRY", 5*time.Minute),
		},
		Email: EmailConfig{
			Provider:    getEnv("EMAIL_PROVIDER", "log"),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
			ToAddress:   getEnv("EMAIL_TO_ADDRESS", ""),
		},
	}

	if err := validateTokenSecret(tokenSecret, env); err != nil {
		return nil, err
	}

	if cfg.Email.Provider == "ses" {
		if cfg.Email.FromAddress == "" || cfg.Email.ToAddress == "" {
			return nil, fmt.Errorf("EMAIL_FROM_ADDRESS and EMAIL_TO_ADDRESS are required when EMAIL_PROVIDER=ses")
		}
	}

	return cfg, nil
}

// validateTokenSecret enforces minimum strength for the token signing secret
func validateTokenSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("CAPTCHA_TOKEN_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("CAPTCHA_TOKEN_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
