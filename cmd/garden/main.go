package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-errors"
	garden "github.com/goliatone/go-garden"
	"github.com/goliatone/go-print"
)

// configPath holds the value of the --config flag
var configPath string

// rootCmd is the base command of the garden CLI
var rootCmd = &cobra.Command{
	Use:   "garden",
	Short: "Plant catalog and garden web application",
	Long: `garden serves the plant catalog web application and manages its
database: schema migrations, catalog seed data and user accounts.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a yaml, json or toml configuration file")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, userCmd)
	userCmd.AddCommand(userCreateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// describeError joins the messages along the error chain, Error on rich
// errors only renders their public summary.
func describeError(err error) string {
	var parts []string
	for err != nil {
		rich, ok := err.(*errors.Error)
		if !ok {
			parts = append(parts, err.Error())
			break
		}
		if rich.Message != "" {
			parts = append(parts, rich.Message)
		}
		err = rich.Source
	}
	return strings.Join(parts, ": ")
}

// loadConfig reads the options and builds the logger they describe
func loadConfig() (*garden.Options, garden.Logger, error) {
	opts, err := garden.LoadOptions(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := garden.NewLogger(os.Stdout, opts.Log.Format, opts.Log.Level)
	if strings.EqualFold(opts.Log.Level, "debug") {
		redacted := *opts
		redacted.Auth.SigningKey = "******"
		redacted.CSRF.SecureKey = "******"
		logger.Debug("configuration loaded", "config", print.MaybePrettyJSON(redacted))
	}

	return opts, logger, nil
}

// openRepo opens the database and wires the repositories
func openRepo(opts *garden.Options) (garden.RepositoryManager, func() error, error) {
	db, err := garden.OpenDB(opts.Database.DSN, opts.Database.Debug)
	if err != nil {
		return nil, nil, err
	}
	return garden.NewRepositoryManager(db), db.Close, nil
}
