// Package cli implements the inspect command: a terminal front end for the
// inspection wizard. Every invocation reloads the draft, so consecutive
// commands behave like page reloads of the same session.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ert-inspection/internal/common/config"
	"ert-inspection/internal/common/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Type       string
	Format     string // "json" | "text"
	Verbose    bool

	// Env is built in PersistentPreRunE unless already set.
	Env      *Env
	ownedEnv bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the inspect command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

// NewRootCommandWithEnv runs every command against env instead of loading
// configuration.
func NewRootCommandWithEnv(env *Env) *cobra.Command {
	return newRootCommand(&RootOptions{Env: env})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "inspect",
		Short:         "ERT safety inspection wizard",
		Long:          "Capture APAR, hydrant, eye wash, smoke detector and P2H inspections and submit them to the records API.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Env != nil {
				return nil
			}
			return opts.loadEnv(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.ownedEnv && opts.Env != nil {
				err := opts.Env.Close()
				opts.Env = nil
				return err
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default configs/config.yaml)")
	cmd.PersistentFlags().StringVarP(&opts.Type, "type", "t", "apar", "inspection type (apar|hydrant|eyewash|smoke|p2h)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewTypesCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewInfoCommand(opts))
	cmd.AddCommand(NewFormCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewStepCommand(opts))
	cmd.AddCommand(NewNextCommand(opts))
	cmd.AddCommand(NewBackCommand(opts))
	cmd.AddCommand(NewPhotoCommand(opts))
	cmd.AddCommand(NewSignCommand(opts))
	cmd.AddCommand(NewReviewCommand(opts))
	cmd.AddCommand(NewSubmitCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

func (opts *RootOptions) loadEnv(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFromFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	level := cfg.Logging.Level
	if opts.Verbose {
		level = "debug"
	}
	log := logger.NewStructured(level, cfg.Logging.Format, cfg.Logging.Output)

	env, err := NewEnv(cmd.Context(), cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialise", err)
	}
	opts.Env = env
	opts.ownedEnv = true
	return nil
}

func (opts *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
