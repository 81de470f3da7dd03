package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/cobslog/internal/config"
	"firestige.xyz/cobslog/internal/log"
	"firestige.xyz/cobslog/internal/pipeline"
	"firestige.xyz/cobslog/internal/sink/console"
	"firestige.xyz/cobslog/internal/source/serial"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Record the byte stream from a serial port",
	Long: `Record the raw byte stream from a serial port to a file.

With a layout or record size the frames are classified while they arrive and
a summary is printed when the capture ends. The capture ends after --duration
or on interrupt.

Examples:
  cobslog capture --list
  cobslog capture -p /dev/ttyACM0 -b 115200 -o run.bin
  cobslog capture -p /dev/ttyACM0 -o run.bin -d 30s -l flimnap.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if captureArgs.list {
			return runPorts(serial.Ports, cmd.OutOrStdout())
		}

		cfg := *appConfig
		captureArgs.apply(cmd, &cfg)
		flags := cmd.Flags()
		if flags.Changed("port") {
			cfg.Serial.Port = captureArgs.port
		}
		if flags.Changed("baud") {
			cfg.Serial.Baud = captureArgs.baud
		}
		if err := cfg.ValidateAndApplyDefaults(); err != nil {
			return err
		}
		if captureArgs.output == "" {
			return fmt.Errorf("--output is required")
		}

		f, err := os.Create(captureArgs.output)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", captureArgs.output, err)
		}
		defer f.Close()

		src := serial.NewSource(serial.Config{
			Port:        cfg.Serial.Port,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeout,
		})
		err = runCapture(cmd.Context(), &cfg, src, f, captureArgs.duration, flags.Changed("metadata-len"), cmd.OutOrStdout())
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		return err
	},
}

type captureFlags struct {
	extractFlags
	port     string
	baud     int
	output   string
	duration time.Duration
	list     bool
}

var captureArgs = &captureFlags{}

func init() {
	captureArgs.bind(captureCmd)
	captureCmd.Flags().StringVarP(&captureArgs.port, "port", "p", "", "serial port (default from config serial.port)")
	captureCmd.Flags().IntVarP(&captureArgs.baud, "baud", "b", 115200, "baud rate")
	captureCmd.Flags().StringVarP(&captureArgs.output, "output", "o", "", "file receiving the raw byte stream")
	captureCmd.Flags().DurationVarP(&captureArgs.duration, "duration", "d", 0, "stop after this long (0 = until interrupted)")
	captureCmd.Flags().BoolVar(&captureArgs.list, "list", false, "list available serial ports and exit")
}

// runCapture copies src to dst until the duration elapses or ctx is done.
// Frames are classified on the fly when the record size is known.
func runCapture(ctx context.Context, cfg *config.Config, src pipeline.Source, dst io.Writer, duration time.Duration, metadataLenSet bool, w io.Writer) error {
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	stopMetrics, err := startMetrics(ctx, cfg)
	if err != nil {
		return err
	}
	defer stopMetrics()

	if cfg.Layout.Path == "" && cfg.Decoder.RecordSize == 0 {
		return copyCapture(ctx, src, dst, w)
	}

	x, err := resolveExtraction(cfg, metadataLenSet)
	if err != nil {
		return err
	}
	p, err := pipeline.NewBuilder().
		WithSource(src).
		WithOptions(x.options).
		WithDecoder(x.decoder).
		WithMode(pipeline.ModeStream).
		WithTee(dst).
		WithLive(true).
		WithSinks(console.NewSink(w)).
		WithMetrics(cfg.Metrics.Enabled).
		WithLogLimit(logLimit(cfg)).
		Build()
	if err != nil {
		return err
	}
	_, runErr := p.Run(ctx)
	if err := p.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func copyCapture(ctx context.Context, src pipeline.Source, dst io.Writer, w io.Writer) error {
	logger := log.GetLogger().WithField("source", src.Name())
	if err := src.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := src.Stop(); err != nil {
			logger.WithError(err).Error("source stop failed")
		}
	}()

	r, err := src.Reader(ctx)
	if err != nil {
		return err
	}
	logger.Info("capture started")
	start := time.Now()
	n, err := io.Copy(dst, r)
	if err != nil {
		return fmt.Errorf("capture %s: %w", src.Name(), err)
	}
	fmt.Fprintf(w, "captured %d bytes from %s in %s\n", n, src.Name(), time.Since(start).Round(time.Millisecond))
	return nil
}

func runPorts(list func() ([]string, error), w io.Writer) error {
	ports, err := list()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(w, p)
	}
	return nil
}
