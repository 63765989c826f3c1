package cli

import (
	"github.com/spf13/cobra"

	"github.com/vnkhanh/erp-questionnaire/config"
	"github.com/vnkhanh/erp-questionnaire/repository"
)

// NewMigrateCmd applies the schema.
func NewMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(*configPath)
		},
	}
}

func runMigrations(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger := config.InitLogger(cfg.Log)
	db, err := config.OpenDB(cfg)
	if err != nil {
		return err
	}
	if err := repository.Migrate(db); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}
