package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/isorender/internal/version"
)

func newVersionCmd() *cobra.Command {
	var (
		format   string
		short    bool
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version information for isorender.

Examples:
  isorender version               # Version and commit
  isorender version --short       # Version only
  isorender version --detailed    # Commit, build time, Go version, platform
  isorender version --format json # Build info as JSON`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeVersion(cmd.OutOrStdout(), version.Get(), format, short, detailed)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json)")
	cmd.Flags().BoolVar(&short, "short", false, "Show short version only")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show detailed version information")
	return cmd
}

func writeVersion(w io.Writer, info version.BuildInfo, format string, short, detailed bool) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case "text":
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", format)
	}

	var err error
	switch {
	case short:
		_, err = fmt.Fprintln(w, info.Version)
	case detailed:
		_, err = fmt.Fprintln(w, info.Detailed())
	default:
		_, err = fmt.Fprintf(w, "isorender %s\n", info.Short())
	}
	return err
}
