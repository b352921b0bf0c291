package config

import (
	"github.com/dmitrijs2005/nibblelog/internal/flagx"
	"github.com/dmitrijs2005/nibblelog/internal/server/auth"
)

// parseEnv overlays values from environment variables that are set:
//
//	HTTP_ADDR, GRPC_ADDR, DATABASE_DRIVER, DATABASE_URL, JWT_SECRET,
//	NIBBLE_USERS ("name:password,..."), CORS_ORIGINS (comma list),
//	OTEL_EXPORTER_OTLP_ENDPOINT, LOG_LEVEL
func parseEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &cfg.EndpointAddrHTTP)
	str("GRPC_ADDR", &cfg.EndpointAddrGRPC)
	str("DATABASE_DRIVER", &cfg.DatabaseDriver)
	str("DATABASE_URL", &cfg.DatabaseDSN)
	str("JWT_SECRET", &cfg.SecretKey)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OTLPEndpoint)
	str("LOG_LEVEL", &cfg.LogLevel)

	if v, ok := lookup("NIBBLE_USERS"); ok && v != "" {
		users, err := auth.ParseUsers(v)
		if err != nil {
			return err
		}
		cfg.Users = users
	}
	if v, ok := lookup("CORS_ORIGINS"); ok && v != "" {
		cfg.CORSOrigins = flagx.SplitList(v)
	}
	return nil
}
