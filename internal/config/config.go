package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração do portal carregada do ambiente.
type Config struct {
	Port               int
	BackendURL         string
	BackendTimeout     time.Duration
	RedisURL           string
	SessionSecret      string
	SessionTTL         time.Duration
	AllowOrigins       []string
	NominatimURL       string
	NominatimUserAgent string
	MetricsEnabled     bool
	RateLimitPublic    RateLimitConfig
	RateLimitAuth      RateLimitConfig
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// CLI é a configuração do cliente de linha de comando.
type CLI struct {
	BackendURL     string
	BackendTimeout time.Duration
	SessionFile    string
	NominatimURL   string
	UserAgent      string
	SearchDebounce time.Duration
}

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.BackendURL = strings.TrimRight(strings.TrimSpace(getEnv("BACKEND_URL", "http://localhost:5000")), "/")
	if cfg.BackendURL == "" {
		return nil, errors.New("BACKEND_URL obrigatório")
	}

	if cfg.BackendTimeout, err = parseDurationEnv("BACKEND_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))

	cfg.SessionSecret = strings.TrimSpace(getEnv("SESSION_SECRET", ""))
	if len(cfg.SessionSecret) < 32 {
		return nil, errors.New("SESSION_SECRET deve ter pelo menos 32 caracteres")
	}

	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", 30*24*time.Hour); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(getEnv("ALLOW_ORIGINS", ""), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, origin)
		}
	}

	cfg.NominatimURL = strings.TrimSpace(getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"))
	cfg.NominatimUserAgent = strings.TrimSpace(getEnv("NOMINATIM_USER_AGENT", "SVCA/1.0"))

	if cfg.MetricsEnabled, err = parseBoolEnv("METRICS_ENABLED", true); err != nil {
		return nil, err
	}

	cfg.RateLimitPublic = RateLimitConfig{RequestsPerSecond: 10, Burst: 20}
	cfg.RateLimitAuth = RateLimitConfig{RequestsPerSecond: 10, Burst: 40}

	return cfg, nil
}

// LoadCLI lê a configuração do cliente. O arquivo de sessão padrão fica em
// $XDG_CONFIG_HOME/svca/session.json.
func LoadCLI() (*CLI, error) {
	_ = godotenv.Load()

	cfg := &CLI{
		BackendURL:   strings.TrimRight(strings.TrimSpace(getEnv("SVCA_BACKEND_URL", getEnv("BACKEND_URL", "http://localhost:5000"))), "/"),
		NominatimURL: strings.TrimSpace(getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org")),
		UserAgent:    strings.TrimSpace(getEnv("NOMINATIM_USER_AGENT", "SVCA/1.0")),
	}

	var err error
	if cfg.BackendTimeout, err = parseDurationEnv("BACKEND_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.SearchDebounce, err = parseDurationEnv("SEARCH_DEBOUNCE", 500*time.Millisecond); err != nil {
		return nil, err
	}

	cfg.SessionFile = strings.TrimSpace(getEnv("SVCA_SESSION_FILE", ""))
	if cfg.SessionFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, errors.New("SVCA_SESSION_FILE obrigatório: diretório de configuração indisponível")
		}
		cfg.SessionFile = filepath.Join(dir, "svca", "session.json")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.New(key + " inválido")
	}
	return b, nil
}
