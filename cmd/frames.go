package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"firestige.xyz/cobslog/internal/config"
	"firestige.xyz/cobslog/internal/core/extract"
	"firestige.xyz/cobslog/internal/source/file"
)

var framesCmd = &cobra.Command{
	Use:   "frames <file>",
	Short: "List every frame and how it was classified",
	Long: `List the frames of a captured log with their offset, encoded and decoded
length and outcome (record, missing, metadata, size-mismatch).

Examples:
  cobslog frames run.bin -l flimnap.yaml
  cobslog frames run.bin -r 64 --limit 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *appConfig
		framesArgs.apply(cmd, &cfg)
		if err := cfg.ValidateAndApplyDefaults(); err != nil {
			return err
		}
		return runFrames(cmd.Context(), &cfg, args[0], framesArgs.limit, cmd.Flags().Changed("metadata-len"), cmd.OutOrStdout())
	},
}

type framesFlags struct {
	extractFlags
	limit int
}

var framesArgs = &framesFlags{}

func init() {
	framesArgs.bind(framesCmd)
	framesCmd.Flags().IntVar(&framesArgs.limit, "limit", 0, "print at most N frames (0 = all)")
}

func runFrames(ctx context.Context, cfg *config.Config, path string, limit int, metadataLenSet bool, out io.Writer) error {
	x, err := resolveExtraction(cfg, metadataLenSet)
	if err != nil {
		return err
	}

	src, err := file.NewSource(path)
	if err != nil {
		return err
	}
	if err := src.Start(ctx); err != nil {
		return err
	}
	defer src.Stop()
	data, err := src.ReadAll(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tOFFSET\tENCODED\tDECODED\tOUTCOME\tDETAIL")
	table := &frameTable{w: tw, limit: limit}
	x.options.Observer = table

	res, err := extract.Extract(data, x.options)
	if err != nil {
		return err
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if table.skipped > 0 {
		fmt.Fprintf(out, "... %d more frames\n", table.skipped)
	}
	fmt.Fprintf(out, "%d frames, %d records, %d errors\n", res.Stats.Frames, res.RecordCount(), res.ErrorCount)
	return nil
}

// frameTable prints one row per observed frame.
type frameTable struct {
	w       io.Writer
	limit   int
	rows    int
	skipped int
}

func (t *frameTable) row(f extract.Frame, decoded, outcome, detail string) {
	if t.limit > 0 && t.rows >= t.limit {
		t.skipped++
		return
	}
	t.rows++
	fmt.Fprintf(t.w, "%d\t%d\t%d\t%s\t%s\t%s\n", f.Index, f.Offset, f.Len(), decoded, outcome, detail)
}

func (t *frameTable) OnRecord(f extract.Frame, payload []byte) {
	t.row(f, fmt.Sprint(len(payload)), "record", "")
}

func (t *frameTable) OnMissing(f extract.Frame, err error) {
	t.row(f, "-", "missing", err.Error())
}

func (t *frameTable) OnSizeMismatch(f extract.Frame, err *extract.SizeMismatchError) {
	t.row(f, fmt.Sprint(err.Got), "size-mismatch", err.Error())
}

func (t *frameTable) OnMetadata(f extract.Frame, text string) {
	t.row(f, fmt.Sprint(len(text)), "metadata", fmt.Sprintf("%q", text))
}

func (t *frameTable) OnTrailing(n int) {
	fmt.Fprintf(t.w, "-\t-\t%d\t-\ttrailing\tunterminated\n", n)
}
