package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig() *Config {
	cfg := &Config{}
	cfg.SecretKey.Access = DevAccessSecret
	cfg.SecretKey.Refresh = DevRefreshSecret
	cfg.Auth = &AuthConfig{InternalToken: DevInternalToken}
	cfg.Gateway = &GatewayConfig{}
	cfg.applyDefaults()

	return cfg
}

func TestValidate_DevelopmentDefaultsAccepted(t *testing.T) {
	cfg := newTestConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, VerificationLocal, cfg.Gateway.Verification)
	assert.Equal(t, RateLimitStoreMemory, cfg.Gateway.RateLimit.Store)
	assert.Equal(t, 10, cfg.Gateway.RateLimit.StrictMax)
}

func TestValidate_ProductionRejectsDevSecrets(t *testing.T) {
	cfg := newTestConfig()
	cfg.Env.Env = EnvProduction

	assert.Error(t, cfg.Validate())

	cfg.SecretKey.Access = "prod-access"
	cfg.SecretKey.Refresh = "prod-refresh"
	assert.Error(t, cfg.Validate(), "default internal token must also be rejected")

	cfg.Auth.InternalToken = "prod-internal"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "missing secret", mutate: func(c *Config) { c.SecretKey.Refresh = "" }},
		{name: "identical secrets", mutate: func(c *Config) { c.SecretKey.Refresh = c.SecretKey.Access }},
		{name: "remote without url", mutate: func(c *Config) { c.Gateway.Verification = VerificationRemote }},
		{name: "unknown strategy", mutate: func(c *Config) { c.Gateway.Verification = "magic" }},
		{name: "redis without addr", mutate: func(c *Config) { c.Gateway.RateLimit.Store = RateLimitStoreRedis }},
		{name: "bad route", mutate: func(c *Config) {
			c.Gateway.Services = []ServiceRoute{{Name: "hr", Prefix: "api/hr", URL: "http://hr"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestApplyDefaults_RaisesLowBcryptCost(t *testing.T) {
	cfg := &Config{Auth: &AuthConfig{BcryptCost: 4}}
	cfg.applyDefaults()

	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, defaultAccessTokenTTL, cfg.Auth.AccessTokenTTL)
	assert.Nil(t, cfg.Gateway)
}
