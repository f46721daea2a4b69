package config

import "time"

// Config holds runtime settings for the picdrop client.
//
// Fields:
//   - ServerURL: base URL of the backend HTTP API.
//   - RequestTimeout: per-request timeout of the API client.
//   - DatabasePath: SQLite file holding the persisted session.
//   - DownloadDir: directory downloads are saved into.
//   - OpenTTL: how long an opened image stays in memory.
//   - ThumbnailConcurrency: parallel thumbnail fetches, 0 for no cap.
//   - LogLevel: debug, info, warn or error.
//   - S3Bucket / S3Region / S3Endpoint / S3AccessKey / S3SecretKey: when
//     S3Bucket is set downloads go to that bucket instead of DownloadDir.
type Config struct {
	ServerURL            string
	RequestTimeout       time.Duration
	DatabasePath         string
	DownloadDir          string
	OpenTTL              time.Duration
	ThumbnailConcurrency int
	LogLevel             string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
	c.RequestTimeout = 30 * time.Second
	c.DatabasePath = "picdrop.db"
	c.DownloadDir = "downloads"
	c.OpenTTL = 60 * time.Second
	c.ThumbnailConcurrency = 0
	c.LogLevel = "info"
	c.S3Region = "us-east-1"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
