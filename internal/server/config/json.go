package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/dmitrijs2005/nibblelog/internal/flagx"
	"github.com/dmitrijs2005/nibblelog/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept both "1s" style strings and integer nanoseconds. Zero values mean
// "not set" and leave the current value untouched.
type JsonConfig struct {
	EndpointAddrHTTP            string            `json:"endpoint_addr_http"`
	EndpointAddrGRPC            *string           `json:"endpoint_addr_grpc"`
	DatabaseDriver              string            `json:"database_driver"`
	DatabaseDSN                 string            `json:"database_dsn"`
	SecretKey                   string            `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration    `json:"access_token_validity_duration"`
	Users                       map[string]string `json:"users"`
	CORSOrigins                 []string          `json:"cors_origins"`
	PullPageLimit               int               `json:"pull_page_limit"`
	HealthCheckInterval         timex.Duration    `json:"health_check_interval"`
	OTLPEndpoint                string            `json:"otlp_endpoint"`
	LogLevel                    string            `json:"log_level"`
	S3RootUser                  string            `json:"s3_root_user"`
	S3RootPassword              string            `json:"s3_root_password"`
	S3Bucket                    string            `json:"s3_bucket"`
	S3Region                    string            `json:"s3_region"`
	S3BaseEndpoint              string            `json:"s3_base_endpoint"`
}

// parseJson overlays the JSON file at path onto config. An empty path
// loads nothing.
func parseJson(config *Config, path string) error {
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	str := func(src string, dst *string) {
		if src != "" {
			*dst = src
		}
	}

	str(c.EndpointAddrHTTP, &config.EndpointAddrHTTP)
	// an explicit "" disables the gRPC endpoint
	if c.EndpointAddrGRPC != nil {
		config.EndpointAddrGRPC = *c.EndpointAddrGRPC
	}
	str(c.DatabaseDriver, &config.DatabaseDriver)
	str(c.DatabaseDSN, &config.DatabaseDSN)
	str(c.SecretKey, &config.SecretKey)
	str(c.OTLPEndpoint, &config.OTLPEndpoint)
	str(c.LogLevel, &config.LogLevel)
	str(c.S3RootUser, &config.S3RootUser)
	str(c.S3RootPassword, &config.S3RootPassword)
	str(c.S3Bucket, &config.S3Bucket)
	str(c.S3Region, &config.S3Region)
	str(c.S3BaseEndpoint, &config.S3BaseEndpoint)

	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.HealthCheckInterval.Duration > 0 {
		config.HealthCheckInterval = c.HealthCheckInterval.Duration
	}
	if c.PullPageLimit > 0 {
		config.PullPageLimit = c.PullPageLimit
	}
	if len(c.Users) > 0 {
		config.Users = c.Users
	}
	if len(c.CORSOrigins) > 0 {
		config.CORSOrigins = flagx.SplitList(strings.Join(c.CORSOrigins, ","))
	}
	return nil
}
