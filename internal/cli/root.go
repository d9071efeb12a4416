package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const serviceName = "freeshare-api"

// Execute runs the freeshare command tree until it returns or a signal arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the freeshare CLI. Running it without a
// subcommand starts the API server.
func NewRootCommand() *cobra.Command {
	var envFiles []string

	serve := newServeCommand()
	cmd := &cobra.Command{
		Use:           "freeshare",
		Short:         "FreeShare item giveaway API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFiles(envFiles)
		},
		RunE: serve.RunE,
	}

	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment (default .env when present)")
	cmd.AddCommand(serve)
	cmd.AddCommand(newMigrateCommand())
	return cmd
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		files = []string{".env"}
	}
	return godotenv.Load(files...)
}
