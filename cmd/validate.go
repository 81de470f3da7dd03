package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/cobslog/internal/core"
	"firestige.xyz/cobslog/internal/layout"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a record layout file",
	Long: `Validate a record layout file (YAML or TOML) and print the resolved fields.

File format is auto-detected from extension (.yaml, .yml, .toml).

Examples:
  cobslog validate -l flimnap.yaml
  cobslog validate -l flimnap.toml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(validateLayoutFile, cmd.OutOrStdout()); err != nil {
			fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
			os.Exit(1)
		}
	},
}

var validateLayoutFile string

func init() {
	validateCmd.Flags().StringVarP(&validateLayoutFile, "layout", "l", "",
		"record layout file to validate (required)")
	validateCmd.MarkFlagRequired("layout")
	validateCmd.Long += "\n\nField types: " + describeTypes()
}

func runValidate(path string, w io.Writer) error {
	l, spec, err := layout.Load(path)
	if err != nil {
		return err
	}

	order := "little"
	if l.Order().String() == "BigEndian" {
		order = "big"
	}
	fmt.Fprintf(w, "VALID: layout %q, %d field(s), %d bytes per record, %s endian, metadata length %d\n",
		l.Name, len(l.Fields), l.Size(), order, spec.EffectiveMetadataLen())

	if spec.EffectiveMetadataLen() == l.Size() {
		fmt.Fprintln(w, "WARNING: metadata length equals record size; the build identifier will never be captured")
	}

	offsets := l.Offsets()
	for i, f := range l.Fields {
		fmt.Fprintf(w, "  %4d  %-8s %s\n", offsets[i], f.Type, f.Name)
	}
	return nil
}

// describeTypes lists the accepted field type names.
func describeTypes() string {
	types := []core.FieldType{
		core.Int8, core.Int16, core.Int32, core.Int64,
		core.Uint8, core.Uint16, core.Uint32, core.Uint64,
		core.Float32, core.Float64,
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
