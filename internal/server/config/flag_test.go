package config

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/server/auth"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected func() *Config
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{
				"-a", "127.0.0.1:8080", "-l", "127.0.0.1:9090", "-m", "sqlite", "-d", "db", "-s", "secret",
				"-t", "60", "-n", "yak:changeme,bob:pw", "-o", "http://a,http://b", "-p", "10",
				"-x", "otel:4318", "-u", "user", "-w", "password", "-b", "bucket", "-g", "us-west-1",
				"-e", "http://endpoint",
			},
			expected: func() *Config {
				c := defaults()
				c.EndpointAddrHTTP = "127.0.0.1:8080"
				c.EndpointAddrGRPC = "127.0.0.1:9090"
				c.DatabaseDriver = "sqlite"
				c.DatabaseDSN = "db"
				c.SecretKey = "secret"
				c.AccessTokenValidityDuration = time.Hour
				c.Users = auth.Users{"yak": "changeme", "bob": "pw"}
				c.CORSOrigins = []string{"http://a", "http://b"}
				c.PullPageLimit = 10
				c.OTLPEndpoint = "otel:4318"
				c.S3RootUser = "user"
				c.S3RootPassword = "password"
				c.S3Bucket = "bucket"
				c.S3Region = "us-west-1"
				c.S3BaseEndpoint = "http://endpoint"
				return c
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-c", "cfg.json", "-z", "zzz", "-a", ":1"},
			expected: func() *Config { c := defaults(); c.EndpointAddrHTTP = ":1"; return c },
		},
		{
			name:    "non numeric page limit",
			args:    []string{"-p", "many"},
			wantErr: true,
		},
		{
			name:    "bad users",
			args:    []string{"-n", "nocolon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected(), cfg))
		})
	}
}
