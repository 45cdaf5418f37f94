package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/linkmagico/internal/logger"
	"github.com/jmylchreest/linkmagico/internal/output"
	"github.com/jmylchreest/linkmagico/pkg/linkmagico"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract product information from sales pages",
	Long: `Fetch sales pages and print the extracted product information.

Pages that cannot be fetched or parsed are still printed, with fallback
values and an "error" field.

Examples:
  linkmagico extract -u "https://example.com/produto"
  linkmagico extract -u https://a.example -u https://b.example --format jsonl
  linkmagico extract -u "https://example.com/spa" --render-js --format text`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()
	flags.StringSliceP("url", "u", nil, "URL(s) to extract (can be repeated)")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml, text")
	flags.IntP("concurrency", "c", 3, "concurrent fetches")
	flags.Bool("compact", false, "compact JSON output")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	urls, _ := cmd.Flags().GetStringSlice("url")
	urls = append(urls, args...)
	if len(urls) == 0 {
		return cmd.Help()
	}

	formatStr, _ := cmd.Flags().GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		logError("%v", err)
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts, err := cfg.Options()
	if err != nil {
		logger.Error("invalid extraction settings", "error", err)
		return err
	}
	lm, err := linkmagico.New(opts...)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return err
	}
	defer func() { _ = lm.Close() }()

	out := cmd.OutOrStdout()
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return err
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	compact, _ := cmd.Flags().GetBool("compact")
	writer, err := output.NewWriter(out, format, output.WithPretty(!compact))
	if err != nil {
		return err
	}
	defer func() { _ = writer.Close() }()

	concurrency, _ := cmd.Flags().GetInt("concurrency")
	logger.Info("starting extraction",
		"urls", len(urls),
		"fetcher", lm.FetcherType(),
		"concurrency", concurrency)

	count, failed := 0, 0
	for result := range lm.ExtractMany(ctx, urls, concurrency) {
		if result.Failed() {
			failed++
			logger.Warn("extraction failed", "url", result.SourceURL, "error", result.Error)
		}
		if err := writer.Write(result); err != nil {
			logger.Error("failed to write output", "error", err)
			return err
		}
		count++
	}

	logger.Info("extraction complete", "results", count, "failed", failed)
	return nil
}
