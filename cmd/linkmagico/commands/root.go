// Package commands implements the CLI commands for linkmagico.
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/linkmagico/internal/config"
	"github.com/jmylchreest/linkmagico/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "linkmagico",
	Short: "Sales page product extractor and shopper chat assistant",
	Long: `LinkMágico reads a sales page, extracts the product title, price,
description, benefits, testimonials and call to action, and answers
shopper questions about it.

Examples:
  # Run the HTTP API and chat page
  linkmagico serve --addr :3000

  # Extract a product page
  linkmagico extract -u "https://example.com/produto"

  # Ask a question about a product
  linkmagico chat -u "https://example.com/produto" -m "Qual o preço?"`,
	SilenceUsage: true,
}

// configErr holds a config file error from initConfig, reported by the
// command that needs the configuration.
var configErr error

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.linkmagico.yaml or ./.linkmagico.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("log-json", false, "log as JSON")

	// Fetching and extraction, shared by every command.
	flags.String("fetch-mode", "static", "fetch mode: static, dynamic, auto")
	flags.Duration("timeout", 30*time.Second, "fetch timeout")
	flags.Bool("render-js", false, "render pages in a headless browser when needed")
	flags.String("user-agent", "", "HTTP user agent")
	flags.String("rules", "", "extraction rules file (YAML)")

	// Chat.
	flags.StringP("provider", "p", "", "LLM provider: anthropic, openai, none (auto-detects from env vars)")
	flags.String("model", "", "LLM model name (provider-specific)")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("log.json", flags.Lookup("log-json"))
	_ = viper.BindPFlag("fetch.mode", flags.Lookup("fetch-mode"))
	_ = viper.BindPFlag("fetch.timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("fetch.render_js", flags.Lookup("render-js"))
	_ = viper.BindPFlag("fetch.user_agent", flags.Lookup("user-agent"))
	_ = viper.BindPFlag("extract.rules_file", flags.Lookup("rules"))
	_ = viper.BindPFlag("llm.provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("llm.model", flags.Lookup("model"))
}

func initConfig() {
	configErr = config.Setup(viper.GetViper(), viper.GetString("config"))
}

// loadConfig validates the configuration and initializes logging from it.
func loadConfig() (*config.Config, error) {
	if configErr != nil {
		logError("%v", configErr)
		return nil, configErr
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		logError("%v", err)
		return nil, err
	}

	if err := logger.Init(logger.Options{
		Level: cfg.Log.Level,
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  cfg.Log.JSON,
	}); err != nil {
		logError("%v", err)
		return nil, err
	}

	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("config loaded", "file", used)
	}
	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}
