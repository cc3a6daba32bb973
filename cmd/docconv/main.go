// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docconv CLI. Each conversion
// workflow is a subcommand; serve exposes the same workflows over HTTP.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docconv/internal/logging"
	"github.com/pdiddy/docconv/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, otherwise the secret stored under key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the docconv CLI.
var rootCmd = &cobra.Command{
	Use:   "docconv",
	Short: "Convert, merge, and transform documents through a conversion service",
	Long: `docconv sends documents to a remote conversion service and saves what
comes back. Each capability is a subcommand: compress, merge, ocr,
pdf-to-image, pdf-to-md, rotate, protect, unlock, jpg-to-png, and png-to-jpg.

Files are checked locally (50MB limit, expected type) before anything is
sent. Results are written to the output directory, or to an s3:// prefix.
Run "docconv workflows" to list the endpoints in use and "docconv serve" to
expose the same workflows as HTTP form endpoints.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
		}

		if err := logging.Init(logging.Config{
			Level:  viper.GetString("log_level"),
			Format: viper.GetString("log_format"),
		}); err != nil {
			return err
		}

		dir := viper.GetString("secrets_dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logging.L().Sugar().Debugf("loaded secrets: %v", keys)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./docconv.yaml or ~/.config/docconv/config.yaml)")
	pf.String("server", "", "conversion service origin (default "+defaultServer+")")
	pf.StringP("output", "o", "", "output directory or s3://bucket/prefix (default .)")
	pf.Bool("overwrite", false, "overwrite existing output files instead of adding a suffix")
	pf.Duration("timeout", 0, "HTTP request timeout (0 = no timeout)")
	pf.String("history", "", "history database path (empty disables history)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("secrets-dir", ".secrets", "directory of secret files")

	bindFlag("http.server", "server")
	bindFlag("output.dir", "output")
	bindFlag("output.overwrite", "overwrite")
	bindFlag("http.timeout", "timeout")
	bindFlag("history.path", "history")
	bindFlag("log_level", "log-level")
	bindFlag("secrets_dir", "secrets-dir")

	setDefaults()
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docconv")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docconv"))
		}
	}

	viper.SetEnvPrefix("DOCCONV")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
