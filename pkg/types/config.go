package types

import "time"

// DefaultServer is the conversion service origin used when none is configured.
const DefaultServer = "http://localhost:5000"

// HTTPConfig holds settings for requests to the conversion service.
type HTTPConfig struct {
	// Server is the service origin (e.g. "http://localhost:5000").
	Server string `json:"server" yaml:"server"`

	// Timeout is the HTTP request timeout. Zero leaves the transport default.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with requests (e.g. "docconv/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Token is an optional bearer token sent as the Authorization header.
	Token string `json:"-" yaml:"-"`
}

// UploadConfig holds client-side validation settings.
type UploadConfig struct {
	// MaxFileSize caps accepted files in bytes (default 50 MiB).
	MaxFileSize int64 `json:"max_file_size" yaml:"max_file_size"`
}

// OutputConfig selects where binary results are written.
type OutputConfig struct {
	// Dir is a local directory or an s3://bucket/prefix URL.
	Dir string `json:"dir" yaml:"dir"`

	// Overwrite replaces existing files instead of suffixing the name.
	Overwrite bool `json:"overwrite" yaml:"overwrite"`

	// S3Region and S3Endpoint configure the S3 saver. Endpoint is optional
	// and enables path-style addressing for S3-compatible stores.
	S3Region   string `json:"s3_region,omitempty" yaml:"s3_region,omitempty"`
	S3Endpoint string `json:"s3_endpoint,omitempty" yaml:"s3_endpoint,omitempty"`
}

// HistoryConfig holds settings for the submission history database.
type HistoryConfig struct {
	// Path is the SQLite database file. Empty disables history.
	Path string `json:"path" yaml:"path"`
}

// ServeConfig holds settings for the local gateway.
type ServeConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// SessionConfig controls the reset policy after a submission.
type SessionConfig struct {
	// KeepOnFailure keeps the file selection after a failed submission so
	// the user can retry. Secrets are cleared either way.
	KeepOnFailure bool `json:"keep_on_failure" yaml:"keep_on_failure"`
}

// ClientConfig groups all settings for a docconv invocation.
type ClientConfig struct {
	HTTP     HTTPConfig    `json:"http" yaml:"http"`
	Upload   UploadConfig  `json:"upload" yaml:"upload"`
	Output   OutputConfig  `json:"output" yaml:"output"`
	History  HistoryConfig `json:"history" yaml:"history"`
	Serve    ServeConfig   `json:"serve" yaml:"serve"`
	Session  SessionConfig `json:"session" yaml:"session"`
	Catalog  string        `json:"catalog,omitempty" yaml:"catalog,omitempty"`
	LogLevel string        `json:"log_level" yaml:"log_level"`
}
