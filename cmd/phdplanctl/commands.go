package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/iliyamo/phdplan/internal/access"
	"github.com/iliyamo/phdplan/internal/config"
	"github.com/iliyamo/phdplan/internal/database"
	"github.com/iliyamo/phdplan/internal/importer"
	"github.com/iliyamo/phdplan/internal/service"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "phdplanctl",
		Short:         "Maintenance commands for the planner database",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newMigrateCmd(), newPromoteAdminCmd(), newImportCmd(), newExportCmd())
	return root
}

func openDB() (*sqlx.DB, config.Config, error) {
	cfg := config.LoadDB()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	return db, cfg, err
}

func newMigrateCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, _, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			m := database.NewMigrator(db, database.Migrations())
			if down {
				name, err := m.Down(cmd.Context())
				if err != nil {
					return err
				}
				if name == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "nothing to revert")
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "reverted %s\n", name)
				}
				return nil
			}
			applied, err := m.Up(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			return nil
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "revert the most recent migration instead")
	return cmd
}

func newPromoteAdminCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "promote-admin",
		Short: "Give the admin role to an existing user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, cfg, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := service.NewAccounts(db, cfg.BcryptCost).PromoteAdmin(cmd.Context(), email); err != nil {
				return fmt.Errorf("promote %s: %w", email, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now an admin\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user to promote")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// plannerFor builds a planner acting as the given user id with the
// configured spreadsheet mapping.
func plannerFor(ctx context.Context, userID uint64) (*service.Planner, access.Actor, func(), error) {
	db, cfg, err := openDB()
	if err != nil {
		return nil, access.Actor{}, nil, err
	}
	mapping, err := importer.LoadMapping(cfg.ImportMappingFile)
	if err != nil {
		db.Close()
		return nil, access.Actor{}, nil, err
	}
	u, err := service.NewAccounts(db, cfg.BcryptCost).Get(ctx, userID)
	if err != nil {
		db.Close()
		return nil, access.Actor{}, nil, fmt.Errorf("user %d: %w", userID, err)
	}
	a := access.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
	return service.NewPlanner(db, nil, mapping), a, func() { db.Close() }, nil
}

func newImportCmd() *cobra.Command {
	var (
		userID uint64
		path   string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace a user's tasks and strategies with a workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			p, a, closeDB, err := plannerFor(cmd.Context(), userID)
			if err != nil {
				return err
			}
			defer closeDB()

			report, err := p.ImportWorkbook(cmd.Context(), a, f)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d imported, %d skipped, %d duplicates\n",
				report.Tasks.Sheet, report.Tasks.Imported, len(report.Tasks.Skipped), report.Tasks.Duplicates)
			if s := report.Strategies; s != nil {
				fmt.Fprintf(out, "%s: %d imported, %d skipped\n", s.Sheet, s.Imported, len(s.Skipped))
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "id of the user whose plan is replaced")
	cmd.Flags().StringVar(&path, "file", "", "path of the .xlsx workbook")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		userID uint64
		path   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the tasks visible to a user to an .xlsx file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, a, closeDB, err := plannerFor(cmd.Context(), userID)
			if err != nil {
				return err
			}
			defer closeDB()

			data, err := p.ExportWorkbook(cmd.Context(), a)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&userID, "user", 0, "id of the user the export is made for")
	cmd.Flags().StringVar(&path, "out", "phdplan_export.xlsx", "output path")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
