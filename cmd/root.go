package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mercagasto/cmd/config"
	migration "mercagasto/cmd/database/migrate"
	"mercagasto/internal/utils"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "mercagasto",
	Short: "Mercadona receipt pipeline",
	Long: `mercagasto reads Mercadona receipt PDFs, parses them, matches every line
to the product catalog and keeps spending statistics and reports.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		utils.SetConfigPath(configPath)
		utils.LoadConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	RootCmd.AddCommand(
		serveCmd,
		migrateCmd,
		loadCatalogCmd,
		processCmd,
		retryCmd,
		rematchCmd,
		statsCmd,
		reportCmd,
		tokenCmd,
	)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func openDB() (*gorm.DB, error) {
	db, err := config.ConnectDB()
	if err != nil {
		return nil, err
	}
	if err := migration.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// sourceFlags is shared by commands that read the inbox.
type sourceFlags struct {
	dir string
	s3  bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "Read PDFs from this directory (defaults to INBOX_DIR)")
	cmd.Flags().BoolVar(&f.s3, "s3", false, "Read PDFs from the S3 inbox prefix")
	cmd.MarkFlagsMutuallyExclusive("dir", "s3")
}

func (f *sourceFlags) open(ctx context.Context) (config.Source, error) {
	if f.s3 {
		return config.NewSource(ctx, config.SourceS3, "")
	}
	return config.NewSource(ctx, config.SourceDir, f.dir)
}

func servicesWithSource(ctx context.Context, flags *sourceFlags) (*config.Services, error) {
	src, err := flags.open(ctx)
	if err != nil {
		return nil, err
	}
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	return config.NewServices(db, src), nil
}

func services() (*config.Services, error) {
	db, err := openDB()
	if err != nil {
		return nil, err
	}
	return config.NewServices(db, nil), nil
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
