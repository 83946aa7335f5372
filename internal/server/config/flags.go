package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/postkeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   seed source: embedded | s3
//	-b string   S3 bucket holding the seed dataset
//	-k string   S3 object key of the seed dataset
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-u string   S3 root user
//	-p string   S3 root password
//	-l string   log backend: slog | zerolog
//	-v string   log level: debug | info | warn | error
//	-t int      shutdown timeout, seconds
//
// Only the flags above are parsed, so -c/-config and foreign flags pass through.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-b", "-k", "-r", "-e", "-u", "-p", "-l", "-v", "-t"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve the REST API")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC health checks")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SeedSource, "s", config.SeedSource, "seed source (embedded|s3)")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 seed bucket")
	fs.StringVar(&config.S3Key, "k", config.S3Key, "S3 seed object key")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend (slog|zerolog)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")

	shutdownTimeout := fs.Int("t", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
		}
	})
	return nil
}
