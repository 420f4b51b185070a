package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
	defaultBcryptCost         = 12
	defaultAccessTokenTTL     = 15 * time.Minute
	defaultRefreshTokenTTL    = 7 * 24 * time.Hour
	defaultRemoteTimeout      = 5 * time.Second
	defaultSlowQueryThreshold = 200 * time.Millisecond
	defaultPoolMonitor        = 5 * time.Second
	defaultPoolWaitWarn       = 50 * time.Millisecond

	// EnvProduction is the value of env.env that enables production cookie
	// attributes and refuses the development secrets.
	EnvProduction = "production"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP HTTPConfig `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Database DatabaseConfig `json:"database" yaml:"database"`

	SecretKey struct {
		Access  string `json:"access" yaml:"access"`
		Refresh string `json:"refresh" yaml:"refresh"`
	} `json:"secretKey" yaml:"secretKey"`

	Auth *AuthConfig `json:"auth" yaml:"auth"`

	Cookie *CookieConfig `json:"cookie" yaml:"cookie"`

	OAuth *OAuthConfig `json:"oauth" yaml:"oauth"`

	Gateway *GatewayConfig `json:"gateway" yaml:"gateway"`

	Redis *RedisConfig `json:"redis" yaml:"redis"`

	// Firebase configuration for admin push notifications
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	// PubSub configuration for account event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

// HTTPConfig is shared by the auth service and the gateway listeners.
type HTTPConfig struct {
	Port               int    `json:"port" yaml:"port"`
	MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
	Timeouts           struct {
		ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
		ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
		WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
		IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
	} `json:"timeouts" yaml:"timeouts"`
}

// DatabaseConfig tunes query logging and pool monitoring of the auth store.
type DatabaseConfig struct {
	SlowQueryThreshold  time.Duration `json:"slowQueryThreshold" yaml:"slowQueryThreshold"`
	PoolMonitorInterval time.Duration `json:"poolMonitorInterval" yaml:"poolMonitorInterval"`
	PoolWaitWarn        time.Duration `json:"poolWaitWarn" yaml:"poolWaitWarn"`
	// LogQueryParams keeps bind values in query logs. Values include password and token hashes.
	LogQueryParams bool `json:"logQueryParams" yaml:"logQueryParams"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost      int           `json:"bcryptCost" yaml:"bcryptCost"`
	AccessTokenTTL  time.Duration `json:"accessTokenTtl" yaml:"accessTokenTtl"`
	RefreshTokenTTL time.Duration `json:"refreshTokenTtl" yaml:"refreshTokenTtl"`
	// InternalToken is the shared secret the gateway attaches as x-internal-token.
	// Services reject identity headers without it when it is set.
	InternalToken string `json:"internalToken" yaml:"internalToken"`
	// SessionCleanupInterval is how often expired refresh tokens are purged. Zero disables the sweeper.
	SessionCleanupInterval time.Duration `json:"sessionCleanupInterval" yaml:"sessionCleanupInterval"`
}

// CookieConfig controls the attributes of the auth cookies.
type CookieConfig struct {
	Domain string `json:"domain" yaml:"domain"`
}

// OAuthConfig defines lifetimes of the delegated-authorization artifacts.
type OAuthConfig struct {
	CodeTTL         time.Duration `json:"codeTtl" yaml:"codeTtl"`
	AccessTokenTTL  time.Duration `json:"accessTokenTtl" yaml:"accessTokenTtl"`
	RefreshTokenTTL time.Duration `json:"refreshTokenTtl" yaml:"refreshTokenTtl"`
}

// GatewayConfig configures the edge process.
type GatewayConfig struct {
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Verification is "local" (signature and expiry only) or "remote" (ask the auth service).
	Verification   string        `json:"verification" yaml:"verification"`
	AuthServiceURL string        `json:"authServiceUrl" yaml:"authServiceUrl"`
	RemoteTimeout  time.Duration `json:"remoteTimeout" yaml:"remoteTimeout"`

	Services []ServiceRoute `json:"services" yaml:"services"`

	Proxy struct {
		DialTimeout           time.Duration `json:"dialTimeout" yaml:"dialTimeout"`
		ResponseHeaderTimeout time.Duration `json:"responseHeaderTimeout" yaml:"responseHeaderTimeout"`
	} `json:"proxy" yaml:"proxy"`

	HealthTimeout time.Duration `json:"healthTimeout" yaml:"healthTimeout"`

	RateLimit RateLimitConfig `json:"rateLimit" yaml:"rateLimit"`

	CORSOrigins []string `json:"corsOrigins" yaml:"corsOrigins"`
}

// ServiceRoute maps a path prefix to a backend service.
type ServiceRoute struct {
	Name   string `json:"name" yaml:"name"`
	Prefix string `json:"prefix" yaml:"prefix"`
	URL    string `json:"url" yaml:"url"`
}

// RateLimitConfig defines the two limiter tiers of the gateway.
type RateLimitConfig struct {
	// Store is "memory" or "redis".
	Store        string        `json:"store" yaml:"store"`
	Window       time.Duration `json:"window" yaml:"window"`
	Max          int           `json:"max" yaml:"max"`
	StrictWindow time.Duration `json:"strictWindow" yaml:"strictWindow"`
	StrictMax    int           `json:"strictMax" yaml:"strictMax"`
}

// RedisConfig is used by the shared rate-limit store.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// FirebaseConfig defines Firebase configuration for push notifications
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
	// AdminTopic is the FCM topic administrator devices subscribe to.
	AdminTopic string `json:"adminTopic" yaml:"adminTopic"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// IsProduction reports whether production-only behaviour is enabled.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env.Env, EnvProduction)
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			searchPaths = append(searchPaths, filepath.Join(pwd, path))
		}
	}

	var configFile string
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate

			break
		}
	}

	if configFile == "" {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Environment variables override YAML keys. GATEWAY_VERIFICATION -> gateway.verification
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			return canonicalizeEnvKey(k, existingConfigMap), v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.HTTP.MaxRequestBodySize) == "" {
		c.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	if c.Database.SlowQueryThreshold <= 0 {
		c.Database.SlowQueryThreshold = defaultSlowQueryThreshold
	}
	if c.Database.PoolMonitorInterval <= 0 {
		c.Database.PoolMonitorInterval = defaultPoolMonitor
	}
	if c.Database.PoolWaitWarn <= 0 {
		c.Database.PoolWaitWarn = defaultPoolWaitWarn
	}

	if c.Auth == nil {
		c.Auth = &AuthConfig{}
	}
	if c.Auth.BcryptCost < defaultBcryptCost {
		c.Auth.BcryptCost = defaultBcryptCost
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = defaultAccessTokenTTL
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = defaultRefreshTokenTTL
	}

	if c.Cookie == nil {
		c.Cookie = &CookieConfig{}
	}

	if c.OAuth == nil {
		c.OAuth = &OAuthConfig{}
	}
	if c.OAuth.CodeTTL <= 0 {
		c.OAuth.CodeTTL = 10 * time.Minute
	}
	if c.OAuth.AccessTokenTTL <= 0 {
		c.OAuth.AccessTokenTTL = time.Hour
	}
	if c.OAuth.RefreshTokenTTL <= 0 {
		c.OAuth.RefreshTokenTTL = 30 * 24 * time.Hour
	}

	if c.Gateway != nil {
		if strings.TrimSpace(c.Gateway.HTTP.MaxRequestBodySize) == "" {
			c.Gateway.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
		}
		if c.Gateway.Verification == "" {
			c.Gateway.Verification = VerificationLocal
		}
		if c.Gateway.RemoteTimeout <= 0 {
			c.Gateway.RemoteTimeout = defaultRemoteTimeout
		}
		if c.Gateway.HealthTimeout <= 0 {
			c.Gateway.HealthTimeout = defaultRemoteTimeout
		}
		rl := &c.Gateway.RateLimit
		if rl.Store == "" {
			rl.Store = RateLimitStoreMemory
		}
		if rl.Window <= 0 {
			rl.Window = 15 * time.Minute
		}
		if rl.Max <= 0 {
			rl.Max = 100
		}
		if rl.StrictWindow <= 0 {
			rl.StrictWindow = 15 * time.Minute
		}
		if rl.StrictMax <= 0 {
			rl.StrictMax = 10
		}
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv reads POSTGRES_REPLICAS_{index}_{HOST,PORT,USERNAME,PASSWORD}.
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}
