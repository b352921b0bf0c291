package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/nibblelog/internal/flagx"
	"github.com/dmitrijs2005/nibblelog/internal/server/auth"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-l string   gRPC health bind address (e.g., ":50051")
//	-m string   database driver: postgres | sqlite
//	-d string   database DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-n string   users, "name:password,..."
//	-o string   CORS origins, comma separated
//	-p int      pull page limit
//	-x string   OTLP/HTTP trace endpoint
//	-u string   S3 root user
//	-w string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Only recognised flags are parsed, so flags owned by other components do
// not collide.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{
		"-a", "-l", "-m", "-d", "-s", "-t", "-n", "-o", "-p", "-x", "-u", "-w", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "l", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDriver, "m", config.DatabaseDriver, "database driver (postgres|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	users := fs.String("n", "", "users (name:password,...)")
	origins := fs.String("o", "", "CORS origins (comma separated)")

	fs.IntVar(&config.PullPageLimit, "p", config.PullPageLimit, "pull page limit")
	fs.StringVar(&config.OTLPEndpoint, "x", config.OTLPEndpoint, "OTLP trace endpoint")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "w", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute

	if *users != "" {
		parsed, err := auth.ParseUsers(*users)
		if err != nil {
			return err
		}
		config.Users = parsed
	}
	if *origins != "" {
		config.CORSOrigins = flagx.SplitList(*origins)
	}
	return nil
}
