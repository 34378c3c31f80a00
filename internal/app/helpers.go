package app

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mendian-cloud/core/internal/config"
	jwtpkg "github.com/mendian-cloud/core/internal/pkg/jwt"
	"go.uber.org/zap"
)

func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) error {
	if secret := strings.TrimSpace(cfg.JWTSecret); secret != "" {
		jwtpkg.SetSecret(secret)
	} else {
		logger.Warn("jwt_secret is empty, using built-in default secret")
	}

	tz := strings.TrimSpace(cfg.Timezone)
	if tz == "" {
		return nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	time.Local = loc
	_ = os.Setenv("TZ", tz)
	return nil
}

// extractOriginHost returns the host part of an Origin header value.
func extractOriginHost(origin string) string {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return strings.TrimSpace(origin)
	}
	return u.Hostname()
}

// matchOriginPattern matches a host against a config pattern. A leading "*."
// wildcard matches the bare domain and any subdomain.
func matchOriginPattern(pattern, host string) bool {
	pattern = strings.TrimSpace(strings.ToLower(pattern))
	host = strings.ToLower(host)
	if pattern == "" || host == "" {
		return false
	}
	if base, ok := strings.CutPrefix(pattern, "*."); ok {
		return host == base || strings.HasSuffix(host, "."+base)
	}
	return pattern == host
}
