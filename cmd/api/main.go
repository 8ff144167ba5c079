package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/yigit/campuswell/internal/bootstrap"
	"github.com/yigit/campuswell/internal/db"
	"github.com/yigit/campuswell/internal/pkg/logger"
	"github.com/yigit/campuswell/internal/server"
)

// @title CampusWell API
// @version 1.0
// @description API for the CampusWell student wellness and community platform

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

var configPath string

var rootCmd = &cobra.Command{
	Use:          "campuswell",
	Short:        "CampusWell API server",
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
		if err != nil {
			return err
		}
		database, err := bootstrap.SetupDatabase(cmd.Context(), cfg, lgr)
		if err != nil {
			return err
		}
		database.Close()
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired OTPs and refresh tokens once and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
		if err != nil {
			return err
		}
		database, err := db.NewPostgresDB(cmd.Context(), cfg, logger.Component("db"))
		if err != nil {
			return err
		}
		defer database.Close()

		report, err := bootstrap.StoreMaintenance(cfg, database, lgr).Cleanup(cmd.Context())
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
		return err
	},
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(configPath)
	if err != nil {
		return err
	}
	srv, err := server.NewServer(cmd.Context(), cfg, lgr)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize server")
		return err
	}
	if err := srv.Run(cmd.Context()); err != nil {
		lgr.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		return err
	}
	lgr.Info().Msg("Application finished gracefully.")
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", bootstrap.DefaultConfigPath, "path to the YAML config file")
	rootCmd.AddCommand(serveCmd, migrateCmd, cleanupCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
