package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/importer"
	"github.com/sells-group/territory-cli/internal/territory"
)

var (
	importPath   string
	importFormat string
	importSheet  string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import assignments from CSV, XLSX, YAML or JSON",
	Long: "Reads assignments with columns type, code, name and installer_id. " +
		"Invalid rows are reported and skipped; when rows repeat a region the last one wins.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		inputs, err := importer.ReadFile(ctx, importPath, importer.Options{
			Format: importer.Format(importFormat),
			Sheet:  importSheet,
		})
		if err != nil {
			return eris.Wrap(err, "import")
		}

		if importDryRun {
			res := &territory.ImportResult{}
			for i, in := range inputs {
				if _, err := territory.Normalize(in); err != nil {
					res.Rejected = append(res.Rejected, territory.RowError{Row: i + 1, Err: err.Error()})
				}
			}
			zap.L().Info("dry run complete",
				zap.Int("rows", len(inputs)),
				zap.Int("rejected", len(res.Rejected)),
			)
			return printJSON(cmd, res)
		}

		env, err := initEnv(ctx, "admin")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Import(ctx, inputs)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("file", importPath),
			zap.Int64("written", res.Written),
			zap.Int("rejected", len(res.Rejected)),
		)
		return printJSON(cmd, res)
	},
}

func init() {
	importCmd.Flags().StringVar(&importPath, "file", "", "path to the assignment file (required)")
	importCmd.Flags().StringVar(&importFormat, "format", "", "csv, xlsx, yaml or json (default from extension)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "validate rows without writing")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
