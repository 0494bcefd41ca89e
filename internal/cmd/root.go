// Package cmd implements the CLI of the application.
//
// check   - Run a single change detection pass and print the result
// migrate - Create or update the database schema
// refresh - Refresh a set of profiles by steam id
// serve   - Run the tracker service
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// BuildVersion is set at link time.
var BuildVersion = "master"

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "vacstatus",
	Short: "Steam profile and ban status tracker",
	Long:  ``,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	setupCLI()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errExecute := rootCmd.ExecuteContext(ctx); errExecute != nil {
		os.Exit(1)
	}
}

func setupCLI() {
	rootCmd.Version = BuildVersion
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(checkCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./vacstatus.yml)")
}
