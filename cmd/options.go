package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/cobslog/internal/config"
	"firestige.xyz/cobslog/internal/core/extract"
	"firestige.xyz/cobslog/internal/layout"
	"firestige.xyz/cobslog/internal/log"
)

// extractFlags are shared by every command that classifies frames.
type extractFlags struct {
	layoutPath  string
	recordSize  int
	metadataLen int
	lenient     bool
}

func (f *extractFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.layoutPath, "layout", "l", "", "record layout file (.yaml, .yml, .toml)")
	cmd.Flags().IntVarP(&f.recordSize, "record-size", "r", 0, "record size in bytes (default: layout size)")
	cmd.Flags().IntVar(&f.metadataLen, "metadata-len", 0, "build identifier frame length (default 7)")
	cmd.Flags().BoolVar(&f.lenient, "lenient", false, "decode frames in non-strict mode")
}

// apply copies explicitly set flags over the loaded configuration.
func (f *extractFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("layout") {
		cfg.Layout.Path = f.layoutPath
	}
	if flags.Changed("record-size") {
		cfg.Decoder.RecordSize = f.recordSize
	}
	if flags.Changed("metadata-len") {
		cfg.Decoder.MetadataLen = f.metadataLen
	}
	if flags.Changed("lenient") {
		cfg.Decoder.Lenient = f.lenient
	}
}

// extraction holds what a command needs to build an extractor.
type extraction struct {
	decoder *layout.Decoder
	options extract.Options
}

// resolveExtraction loads the layout, if any, and settles the record and
// metadata sizes. An explicit metadata length in the layout file wins over
// the configured default unless metadataLenSet.
func resolveExtraction(cfg *config.Config, metadataLenSet bool) (*extraction, error) {
	x := &extraction{
		options: extract.Options{
			RecordSize:  cfg.Decoder.RecordSize,
			MetadataLen: cfg.Decoder.MetadataLen,
			Lenient:     cfg.Decoder.Lenient,
		},
	}

	if cfg.Layout.Path != "" {
		l, spec, err := layout.Load(cfg.Layout.Path)
		if err != nil {
			return nil, err
		}
		d, err := layout.NewDecoder(l)
		if err != nil {
			return nil, err
		}
		x.decoder = d
		if x.options.RecordSize == 0 {
			x.options.RecordSize = l.Size()
		}
		if spec.MetadataLen > 0 && !metadataLenSet {
			x.options.MetadataLen = spec.MetadataLen
		}
		log.GetLogger().WithFields(map[string]interface{}{
			"layout": l.Name,
			"fields": len(l.Fields),
			"size":   l.Size(),
		}).Debug("layout loaded")
	}

	if x.options.RecordSize <= 0 {
		return nil, fmt.Errorf("record size unknown: pass --layout or --record-size")
	}
	return x, nil
}

func logLimit(cfg *config.Config) extract.RateLimiterConfig {
	return extract.RateLimiterConfig{MaxPerWindow: cfg.Decoder.LogLimit, Window: cfg.Decoder.LogWindow}
}
