package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"firestige.xyz/cobslog/internal/config"
	"firestige.xyz/cobslog/internal/pipeline"
	"firestige.xyz/cobslog/internal/sink"
	"firestige.xyz/cobslog/internal/sink/console"
	csvsink "firestige.xyz/cobslog/internal/sink/csv"
	"firestige.xyz/cobslog/internal/sink/raw"
	"firestige.xyz/cobslog/internal/source/file"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Extract records from a captured log",
	Long: `Extract fixed-size records from a captured serial log and print a summary.

Use "-" to read standard input. The decoded records can be exported as CSV
(needs a layout) or as the raw record buffer, where undecodable frames
appear as records of 0xFF bytes.

Examples:
  cobslog decode run.bin -l flimnap.yaml
  cobslog decode run.bin -l flimnap.yaml --csv run.csv
  cobslog decode run.bin -r 64 --raw run.records --shards 8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *appConfig
		decodeArgs.apply(cmd, &cfg)
		if cmd.Flags().Changed("shards") {
			cfg.Decoder.Shards = decodeArgs.shards
		}
		if cmd.Flags().Changed("stream") {
			cfg.Decoder.Stream = decodeArgs.stream
		}
		if err := cfg.ValidateAndApplyDefaults(); err != nil {
			return err
		}
		return runDecode(cmd.Context(), &cfg, args[0], decodeArgs, cmd.Flags().Changed("metadata-len"), cmd.OutOrStdout())
	},
}

type decodeFlags struct {
	extractFlags
	shards  int
	stream  bool
	csvPath string
	rawPath string
}

var decodeArgs = &decodeFlags{}

func init() {
	decodeArgs.bind(decodeCmd)
	decodeCmd.Flags().IntVar(&decodeArgs.shards, "shards", 1, "split the input into N shards decoded concurrently (0 = GOMAXPROCS)")
	decodeCmd.Flags().BoolVar(&decodeArgs.stream, "stream", false, "scan the input as a stream instead of loading it")
	decodeCmd.Flags().StringVar(&decodeArgs.csvPath, "csv", "", "write decoded records as CSV")
	decodeCmd.Flags().StringVar(&decodeArgs.rawPath, "raw", "", "write the raw record buffer")
}

func runDecode(ctx context.Context, cfg *config.Config, path string, flags *decodeFlags, metadataLenSet bool, out io.Writer) error {
	x, err := resolveExtraction(cfg, metadataLenSet)
	if err != nil {
		return err
	}

	src, err := file.NewSource(path)
	if err != nil {
		return err
	}

	sinks, err := decodeSinks(flags, x, out)
	if err != nil {
		return err
	}
	built := false
	defer func() {
		if !built {
			closeSinks(sinks)
		}
	}()

	mode := pipeline.ModeSequential
	switch {
	case cfg.Decoder.Stream:
		mode = pipeline.ModeStream
	case cfg.Decoder.Shards > 1:
		mode = pipeline.ModeParallel
	}

	stopMetrics, err := startMetrics(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopMetrics()

	p, err := pipeline.NewBuilder().
		WithSource(src).
		WithOptions(x.options).
		WithDecoder(x.decoder).
		WithMode(mode).
		WithShards(cfg.Decoder.Shards).
		WithSinks(sinks...).
		WithMetrics(cfg.Metrics.Enabled).
		WithLogLimit(logLimit(cfg)).
		Build()
	if err != nil {
		return err
	}
	built = true

	_, runErr := p.Run(ctx)
	if err := p.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// createFile opens output files for the csv and raw sinks.
var createFile = os.Create

// decodeSinks builds the console sink plus the requested file sinks. On
// failure every sink already built is closed.
func decodeSinks(flags *decodeFlags, x *extraction, out io.Writer) ([]sink.Sink, error) {
	sinks := []sink.Sink{console.NewSink(out)}
	if flags.csvPath != "" {
		if x.decoder == nil {
			return nil, fmt.Errorf("--csv needs a record layout")
		}
		f, err := createFile(flags.csvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", flags.csvPath, err)
		}
		sinks = append(sinks, csvsink.NewSink(f))
	}
	if flags.rawPath != "" {
		f, err := createFile(flags.rawPath)
		if err != nil {
			closeSinks(sinks)
			return nil, fmt.Errorf("failed to create %s: %w", flags.rawPath, err)
		}
		sinks = append(sinks, raw.NewSink(f))
	}
	return sinks, nil
}

func closeSinks(sinks []sink.Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}
