package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/linkmagico/internal/logger"
	"github.com/jmylchreest/linkmagico/pkg/linkmagico"
	"github.com/jmylchreest/linkmagico/pkg/product"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask a question about a product",
	Long: `Answer one shopper question, optionally about a product page.

Without an LLM API key the answer comes from keyword rules.

Examples:
  linkmagico chat -u "https://example.com/produto" -m "Qual o preço?"
  linkmagico chat -m "Tem garantia?" --provider none`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	flags := chatCmd.Flags()
	flags.StringP("url", "u", "", "product page URL")
	flags.StringP("message", "m", "", "question to answer (required)")
	_ = chatCmd.MarkFlagRequired("message")
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	message, _ := cmd.Flags().GetString("message")
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	responder, err := cfg.Responder()
	if err != nil {
		logger.Error("failed to create chat responder", "error", err)
		return err
	}

	var p product.Result
	if url, _ := cmd.Flags().GetString("url"); url != "" {
		opts, err := cfg.Options()
		if err != nil {
			return err
		}
		lm, err := linkmagico.New(opts...)
		if err != nil {
			logger.Error("failed to initialize", "error", err)
			return err
		}
		defer func() { _ = lm.Close() }()

		p = lm.Extract(ctx, url)
		if p.Failed() {
			logger.Warn("extraction failed, answering without product data", "url", url, "error", p.Error)
		}
	}

	reply, err := responder.Respond(ctx, message, p)
	if err != nil {
		logger.Error("chat reply failed", "responder", responder.Name(), "error", err)
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
	return err
}
