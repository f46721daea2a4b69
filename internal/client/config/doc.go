// Package config loads runtime configuration for the picdrop client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected with -c or -config, or
//     with $PICDROP_CONFIG.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend API
//	-t int      request timeout (seconds)
//	-d string   path of the local SQLite database
//	-o string   download directory
//	-l string   log level
//	-p int      cap on parallel thumbnail fetches (0 = none)
//	-b string   S3 bucket for downloads
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds. Absent keys keep the previous value:
//
//	{
//	  "server_url": "https://picdrop.example.com",
//	  "request_timeout": "30s",
//	  "database_path": "/home/me/.picdrop/picdrop.db",
//	  "download_dir": "/home/me/Pictures/picdrop",
//	  "open_ttl": "1m",
//	  "thumbnail_concurrency": 0,
//	  "log_level": "info",
//	  "s3_bucket": "",
//	  "s3_region": "us-east-1",
//	  "s3_endpoint": "http://127.0.0.1:9000",
//	  "s3_access_key": "",
//	  "s3_secret_key": ""
//	}
package config
