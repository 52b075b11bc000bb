package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/autodash/internal/utils"
	"github.com/spf13/cobra"
)

var (
	abFlags  dashFlags
	abOutDir string
	abQuiet  bool
)

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Build dashboards for multiple CSV/TSV/XLSX files with progress",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := utils.ExpandGlobs(args)
		if err != nil {
			return err
		}
		if abOutDir != "" {
			if err := os.MkdirAll(abOutDir, 0o755); err != nil {
				return fmt.Errorf("create out dir: %w", err)
			}
		}
		format, err := abFlags.outputFormat()
		if err != nil {
			return err
		}
		suffix := ".dashboard.md"
		if format == "json" {
			suffix = ".dashboard.json"
		}

		out := cmd.OutOrStdout()
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			body, err := abFlags.build(cmd, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			if abOutDir == "" {
				if !abQuiet {
					fmt.Fprintln(out, body)
				}
				continue
			}
			base := filepath.Base(path)
			safe := strings.TrimSuffix(base, filepath.Ext(base))
			outFile := utils.UniquePath(abOutDir, safe, suffix)
			if filepath.Base(outFile) != safe+suffix && !abQuiet {
				fmt.Fprintf(out, "⚠ Detected existing dashboard, writing to %s to avoid overwrite.\n", filepath.Base(outFile))
			}
			if err := utils.SafeWriteFile(outFile, []byte(body)); err != nil {
				return fmt.Errorf("write dashboard: %w", err)
			}
			if !abQuiet {
				fmt.Fprintf(out, "✓ Wrote %s\n", outFile)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	abFlags.register(analyzeBatchCmd)
	analyzeBatchCmd.Flags().StringVar(&abOutDir, "out-dir", "", "directory to write <name>.dashboard.md files into")
	analyzeBatchCmd.Flags().BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
}
