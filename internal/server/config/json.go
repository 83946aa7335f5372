package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/postkeeper/internal/flagx"
	"github.com/dmitrijs2005/postkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so that both "5s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC string         `json:"endpoint_addr_grpc"`
	DatabaseDSN      string         `json:"database_dsn"`
	SeedSource       string         `json:"seed_source"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Key            string         `json:"s3_key"`
	S3Region         string         `json:"s3_region"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	S3RootUser       string         `json:"s3_root_user"`
	S3RootPassword   string         `json:"s3_root_password"`
	LogBackend       string         `json:"log_backend"`
	LogLevel         string         `json:"log_level"`
	ShutdownTimeout  timex.Duration `json:"shutdown_timeout"`
}

// parseJSON overlays values from the file named by -c/-config. Keys missing
// from the file leave the current values untouched; no flag means no file.
func parseJSON(config *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(data, c); err != nil {
		return err
	}

	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SeedSource, c.SeedSource)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Key, c.S3Key)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.LogBackend, c.LogBackend)
	overlay(&config.LogLevel, c.LogLevel)
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}

	return nil
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
