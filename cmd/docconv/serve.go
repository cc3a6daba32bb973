// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docconv/internal/gateway"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the workflows as HTTP form endpoints",
	Long: `Serve starts a local gateway exposing each workflow at its route
(POST /pdf/compress, /pdf/merge, /image/jpg-to-png, ...). Requests use the
same multipart fields as the conversion service, are validated locally, and
are forwarded. GET /workflows lists the catalog, /health reports status, and
/metrics exposes Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := clientConfig()
		cat, err := loadCatalog(cfg)
		if err != nil {
			return err
		}
		store, err := openHistory(cfg.History)
		if err != nil {
			return err
		}
		gwCfg := gateway.Config{
			HTTP:           cfg.HTTP,
			MaxFileSize:    cfg.Upload.MaxFileSize,
			AllowedOrigins: cfg.Serve.AllowedOrigins,
		}
		if store != nil {
			defer store.Close()
			gwCfg.History = store
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Fprintf(cmd.OutOrStdout(), "serving %d workflows on http://%s (forwarding to %s)\n",
			len(cat.All()), cfg.Serve.Addr, cfg.HTTP.Server)
		return gateway.New(cat, nil, gwCfg).ListenAndServe(ctx, cfg.Serve.Addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default 127.0.0.1:8080)")
	if err := viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr")); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(serveCmd)
}
