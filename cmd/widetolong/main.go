package main

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/carbocation/widetolong"
	"github.com/carbocation/widetolong/compileinfo"
	"github.com/carbocation/widetolong/longform"
)

type options struct {
	csv             bool
	crlf            bool
	detectDelimiter bool
	verbose         bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "widetolong: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		opts   options
		logger = zap.NewNop()
	)

	cmd := &cobra.Command{
		Use:   "widetolong <input_file> <output_file>",
		Short: "Reshape a wide taxonomic abundance table into long format",
		Long: `Consumes a tab-delimited abundance table with one row per taxon (columns
name, taxonomy_id, taxonomy_lvl, then <sample>_num and <sample>_frac for each
sample) and writes one row per taxon and sample:

  name taxonomy_id taxonomy_lvl sample abundance_num abundance_frac

A row is written for a sample only when both its num and frac cells are
non-empty. Use - for stdin or stdout. gs://bucket/object paths are read from
and written to Google Storage. Compressed inputs are detected automatically and
outputs ending in .gz are gzipped.`,
		Args:          cobra.ExactArgs(2),
		Version:       compileinfo.Get().Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config := zap.NewProductionConfig()
			if opts.verbose {
				config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			logger, err = config.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			logger.Debug(compileinfo.Get().String())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), logger, opts, args[0], args[1])
		},
	}

	cmd.Flags().BoolVar(&opts.csv, "csv", false, "Write comma-delimited output instead of tab-delimited output.")
	cmd.Flags().BoolVar(&opts.crlf, "crlf", false, "Terminate output lines with \\r\\n instead of \\n.")
	cmd.Flags().BoolVar(&opts.detectDelimiter, "detect-delimiter", false, "Guess the input delimiter instead of assuming tabs.")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress at debug level.")

	return cmd
}

func run(ctx context.Context, logger *zap.Logger, opts options, inputPath, outputPath string) error {
	delim := '\t'
	if opts.csv {
		delim = ','
	}

	convOpts := []longform.Option{
		longform.WithDelimiter(delim),
		longform.WithCRLF(opts.crlf),
		longform.WithDetectedInputDelimiter(opts.detectDelimiter),
		longform.WithLogger(logger),
	}

	if widetolong.IsGoogleStoragePath(inputPath) || widetolong.IsGoogleStoragePath(outputPath) {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("connecting to Google Storage: %w", err)
		}
		defer client.Close()
		convOpts = append(convOpts, longform.WithStorageClient(client))
	}

	stats, err := longform.New(convOpts...).ConvertFiles(ctx, inputPath, outputPath)
	if err != nil {
		if outputPath == widetolong.StdioPath && widetolong.IsBrokenPipe(err) {
			logger.Debug("stdout closed early", zap.Int("emitted", stats.Emitted))
			return nil
		}
		return err
	}

	logger.Info("wrote long table",
		zap.String("output", outputPath),
		zap.Int("rows", stats.Rows),
		zap.Int("emitted", stats.Emitted))

	return nil
}
