package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/territory-cli/internal/region"
	"github.com/sells-group/territory-cli/internal/territory"
)

var (
	assignType      string
	assignCode      string
	assignName      string
	assignInstaller string
)

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Manage region assignments",
}

var assignSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Create or replace the assignment for one region",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "admin")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Upsert(ctx, territory.AssignmentInput{
			Type:        region.Type(assignType),
			Code:        assignCode,
			Name:        assignName,
			InstallerID: assignInstaller,
		})
		if err != nil {
			return eris.Wrap(err, "assign set")
		}
		for _, w := range res.Warnings {
			zap.L().Warn("override conflict", zap.String("detail", w))
		}
		return printJSON(cmd, res)
	},
}

var assignDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the assignment for one region",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		t, err := region.ParseType(assignType)
		if err != nil {
			return err
		}

		env, err := initEnv(ctx, "admin")
		if err != nil {
			return err
		}
		defer env.Close()

		ev, err := env.Service.Delete(ctx, t, assignCode)
		if err != nil {
			return eris.Wrap(err, "assign delete")
		}
		return printJSON(cmd, ev)
	},
}

var assignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every assignment with its override status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "admin")
		if err != nil {
			return err
		}
		defer env.Close()

		rows, err := env.Service.ListAssignments(ctx)
		if err != nil {
			return eris.Wrap(err, "assign list")
		}
		return printJSON(cmd, rows)
	},
}

var overridesCmd = &cobra.Command{
	Use:   "overrides",
	Short: "List assignments partially overridden by narrower ones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "admin")
		if err != nil {
			return err
		}
		defer env.Close()

		rows, err := env.Service.Overrides(ctx)
		if err != nil {
			return eris.Wrap(err, "overrides")
		}
		return printJSON(cmd, rows)
	},
}

func init() {
	for _, c := range []*cobra.Command{assignSetCmd, assignDeleteCmd} {
		c.Flags().StringVar(&assignType, "type", "", "region type: zip, city, county or state (required)")
		c.Flags().StringVar(&assignCode, "code", "", "region code; normalized for the type")
		_ = c.MarkFlagRequired("type")
	}
	assignSetCmd.Flags().StringVar(&assignName, "name", "", "display name; used as the code when --code is empty")
	assignSetCmd.Flags().StringVar(&assignInstaller, "installer", "", "installer id (required)")
	_ = assignSetCmd.MarkFlagRequired("installer")
	_ = assignDeleteCmd.MarkFlagRequired("code")

	assignCmd.AddCommand(assignSetCmd, assignDeleteCmd, assignListCmd)
	rootCmd.AddCommand(assignCmd, overridesCmd)
}
