package config

import (
	"strings"

	"github.com/pkg/errors"
)

// Development defaults shipped in config.yaml. Production refuses to start with them.
const (
	DevAccessSecret  = "dev-access-secret-change-me"
	DevRefreshSecret = "dev-refresh-secret-change-me"
	DevInternalToken = "dev-internal-token"
)

const (
	VerificationLocal  = "local"
	VerificationRemote = "remote"

	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)

// Validate rejects configurations that must never reach production.
func (c *Config) Validate() error {
	access := strings.TrimSpace(c.SecretKey.Access)
	refresh := strings.TrimSpace(c.SecretKey.Refresh)

	if access == "" || refresh == "" {
		return errors.New("secretKey.access and secretKey.refresh are required")
	}
	if access == refresh {
		return errors.New("access and refresh secrets must differ")
	}

	if gw := c.Gateway; gw != nil {
		switch gw.Verification {
		case VerificationLocal:
		case VerificationRemote:
			if gw.AuthServiceURL == "" {
				return errors.New("gateway.authServiceUrl is required for remote verification")
			}
		default:
			return errors.Errorf("unknown gateway verification strategy: %s", gw.Verification)
		}

		switch gw.RateLimit.Store {
		case RateLimitStoreMemory:
		case RateLimitStoreRedis:
			if c.Redis == nil || c.Redis.Addr == "" {
				return errors.New("redis.addr is required for the redis rate limit store")
			}
		default:
			return errors.Errorf("unknown rate limit store: %s", gw.RateLimit.Store)
		}

		for _, svc := range gw.Services {
			if svc.Name == "" || svc.URL == "" || !strings.HasPrefix(svc.Prefix, "/") {
				return errors.Errorf("invalid gateway service route %q", svc.Name)
			}
		}
	}

	if !c.IsProduction() {
		return nil
	}

	if access == DevAccessSecret || refresh == DevRefreshSecret {
		return errors.New("development JWT secrets are not allowed in production")
	}

	internal := ""
	if c.Auth != nil {
		internal = c.Auth.InternalToken
	}
	if internal == "" || internal == DevInternalToken {
		return errors.New("auth.internalToken must be set to a non-default value in production")
	}

	return nil
}
