package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/picdrop/internal/flagx"
	"github.com/dmitrijs2005/picdrop/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an absent key apart from a zero value.
type JsonConfig struct {
	ServerURL            *string         `json:"server_url"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	DatabasePath         *string         `json:"database_path"`
	DownloadDir          *string         `json:"download_dir"`
	OpenTTL              *timex.Duration `json:"open_ttl"`
	ThumbnailConcurrency *int            `json:"thumbnail_concurrency"`
	LogLevel             *string         `json:"log_level"`

	S3Bucket    *string `json:"s3_bucket"`
	S3Region    *string `json:"s3_region"`
	S3Endpoint  *string `json:"s3_endpoint"`
	S3AccessKey *string `json:"s3_access_key"`
	S3SecretKey *string `json:"s3_secret_key"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// flagx.ConfigPath. Without a file it does nothing. Read or unmarshal
// errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.DownloadDir, jc.DownloadDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)

	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OpenTTL != nil {
		cfg.OpenTTL = jc.OpenTTL.Duration
	}
	if jc.ThumbnailConcurrency != nil {
		cfg.ThumbnailConcurrency = *jc.ThumbnailConcurrency
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
