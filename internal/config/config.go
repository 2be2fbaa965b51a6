package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultBrokerageURL = "https://api.comdirect.de/api/brokerage/v3"

type Config struct {
	HTTPAddr             string
	AppMode              string
	BrokerageURL         string
	BrokerageToken       string
	BrokerageSessionID   string
	BrokerageTimeout     time.Duration
	JWTIssuer            string
	JWTSecret            string
	JWTTTL               time.Duration
	OperatorPasswordHash string
	DBDSN                string
	WebSocketOrigin      string
	KafkaBrokers         string
	KafkaTopic           string
}

// Load reads the environment. A .env file in the working directory is
// applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (Config, error) {
	var c Config
	var missing []string
	c.HTTPAddr = os.Getenv("HTTP_ADDR")
	if c.HTTPAddr == "" {
		missing = append(missing, "HTTP_ADDR")
	}
	c.AppMode = strings.ToLower(strings.TrimSpace(os.Getenv("APP_MODE")))
	if c.AppMode == "" {
		c.AppMode = "development"
	}
	if c.AppMode != "development" && c.AppMode != "production" {
		return c, errors.New("invalid APP_MODE: use development or production")
	}
	c.BrokerageURL = strings.TrimRight(strings.TrimSpace(os.Getenv("BROKERAGE_API_URL")), "/")
	if c.BrokerageURL == "" {
		c.BrokerageURL = DefaultBrokerageURL
	}
	c.BrokerageToken = strings.TrimSpace(os.Getenv("BROKERAGE_ACCESS_TOKEN"))
	if c.AppMode == "production" && c.BrokerageToken == "" {
		missing = append(missing, "BROKERAGE_ACCESS_TOKEN")
	}
	c.BrokerageSessionID = strings.TrimSpace(os.Getenv("BROKERAGE_SESSION_ID"))
	c.BrokerageTimeout = 20 * time.Second
	if raw := os.Getenv("BROKERAGE_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return c, err
		}
		c.BrokerageTimeout = d
	}
	c.JWTIssuer = os.Getenv("JWT_ISSUER")
	if c.JWTIssuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	c.JWTSecret = os.Getenv("JWT_SECRET")
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	jwtTTL := os.Getenv("JWT_TTL")
	if jwtTTL == "" {
		missing = append(missing, "JWT_TTL")
	} else {
		d, err := time.ParseDuration(jwtTTL)
		if err != nil {
			return c, err
		}
		c.JWTTTL = d
	}
	c.OperatorPasswordHash = strings.TrimSpace(os.Getenv("OPERATOR_PASSWORD_HASH"))
	if c.OperatorPasswordHash == "" {
		missing = append(missing, "OPERATOR_PASSWORD_HASH")
	}
	c.DBDSN = os.Getenv("DB_DSN")
	c.WebSocketOrigin = os.Getenv("WS_ORIGIN")
	if c.WebSocketOrigin == "" {
		missing = append(missing, "WS_ORIGIN")
	}
	c.KafkaBrokers = strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	c.KafkaTopic = strings.TrimSpace(os.Getenv("KAFKA_TOPIC"))
	if c.KafkaTopic == "" {
		c.KafkaTopic = "brokerage.mutations"
	}
	if len(missing) > 0 {
		return c, errors.New("missing required env: " + strings.Join(missing, ","))
	}
	return c, nil
}
