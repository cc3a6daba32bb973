// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/viper"

	"github.com/pdiddy/docconv/internal/download"
	"github.com/pdiddy/docconv/internal/history"
	"github.com/pdiddy/docconv/internal/session"
	"github.com/pdiddy/docconv/internal/submit"
	"github.com/pdiddy/docconv/internal/upload"
	"github.com/pdiddy/docconv/internal/workflow"
	"github.com/pdiddy/docconv/pkg/types"
)

const defaultServer = types.DefaultServer

func setDefaults() {
	viper.SetDefault("http.server", defaultServer)
	viper.SetDefault("http.user_agent", "docconv/"+version)
	viper.SetDefault("upload.max_file_size", types.MaxFileSize)
	viper.SetDefault("output.dir", ".")
	viper.SetDefault("history.path", history.DefaultPath)
	viper.SetDefault("serve.addr", "127.0.0.1:8080")
	viper.SetDefault("session.keep_on_failure", true)
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "console")
}

// clientConfig assembles the effective configuration from flags, the
// config file, and DOCCONV_* environment variables.
func clientConfig() types.ClientConfig {
	return types.ClientConfig{
		HTTP: types.HTTPConfig{
			Server:    viper.GetString("http.server"),
			Timeout:   viper.GetDuration("http.timeout"),
			UserAgent: viper.GetString("http.user_agent"),
			Token:     secretDefault("server-token", viper.GetString("http.token")),
		},
		Upload: types.UploadConfig{
			MaxFileSize: viper.GetInt64("upload.max_file_size"),
		},
		Output: types.OutputConfig{
			Dir:        viper.GetString("output.dir"),
			Overwrite:  viper.GetBool("output.overwrite"),
			S3Region:   viper.GetString("output.s3_region"),
			S3Endpoint: viper.GetString("output.s3_endpoint"),
		},
		History: types.HistoryConfig{
			Path: viper.GetString("history.path"),
		},
		Serve: types.ServeConfig{
			Addr:           viper.GetString("serve.addr"),
			AllowedOrigins: viper.GetStringSlice("serve.allowed_origins"),
		},
		Session: types.SessionConfig{
			KeepOnFailure: viper.GetBool("session.keep_on_failure"),
		},
		Catalog:  viper.GetString("catalog"),
		LogLevel: viper.GetString("log_level"),
	}
}

// loadCatalog returns the built-in catalog with any configured overrides.
func loadCatalog(cfg types.ClientConfig) (*workflow.Catalog, error) {
	cat := workflow.Default()
	if cfg.Catalog != "" {
		if err := cat.LoadOverrides(cfg.Catalog); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// newSaver returns the FileSaver for the configured output destination.
func newSaver(ctx context.Context, cfg types.OutputConfig) (download.FileSaver, error) {
	if download.IsS3URL(cfg.Dir) {
		return download.NewS3Saver(ctx, cfg.Dir, download.S3Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: secretDefault("s3-access-key", ""),
			SecretKey: secretDefault("s3-secret-key", ""),
		})
	}
	return &download.DirSaver{Dir: cfg.Dir, Overwrite: cfg.Overwrite}, nil
}

// openHistory opens the history store, or returns nil when disabled.
func openHistory(cfg types.HistoryConfig) (*history.Store, error) {
	if cfg.Path == "" {
		return nil, nil
	}
	return history.Open(cfg.Path)
}

// newSession wires a session for wf. Rejection warnings are printed to
// warn. The returned cleanup closes the history store.
func newSession(ctx context.Context, cfg types.ClientConfig, wf workflow.Workflow, warn io.Writer) (*session.Session, func(), error) {
	saver, err := newSaver(ctx, cfg.Output)
	if err != nil {
		return nil, nil, err
	}

	var clip download.ClipboardWriter
	if sys := (download.SystemClipboard{}); sys.Available() {
		clip = sys
	}

	opts := []session.Option{
		session.WithKeepOnFailure(cfg.Session.KeepOnFailure),
		session.WithUploadOptions(
			upload.WithMaxSize(cfg.Upload.MaxFileSize),
			upload.WithNotifier(upload.NotifierFunc(func(msg string) {
				fmt.Fprintf(warn, "warning: %s\n", msg)
			})),
		),
	}

	cleanup := func() {}
	store, err := openHistory(cfg.History)
	if err != nil {
		return nil, nil, err
	}
	if store != nil {
		opts = append(opts, session.WithHistory(store))
		cleanup = func() { store.Close() }
	}

	sess := session.New(wf, submit.New(nil, cfg.HTTP), download.New(saver, clip), opts...)
	return sess, cleanup, nil
}
