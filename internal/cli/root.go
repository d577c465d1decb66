package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/roach88/wsm/internal/workspace"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// ConfigFile is an optional YAML, TOML or JSON file supplying defaults
	// for the keys format, verbose, schemas and db.
	ConfigFile string

	// Schemas and DB are defaults for the commands that take a schemas
	// directory or a database path. Set from the config file or the
	// WSM_SCHEMAS and WSM_DB environment variables.
	Schemas string
	DB      string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// envPrefix prefixes environment variables read as configuration.
const envPrefix = "WSM"

// NewRootCommand creates the root command for the wsm CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "wsm",
		Short: "wsm - workspace entity storage",
		Long: `Workspace entity storage tooling.

Compiles CUE entity schemas, runs storage scenarios and inspects
snapshots persisted to SQLite.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.loadConfig(cmd.Flags()); err != nil {
				return err
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (yaml, toml or json)")

	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewInspectCommand(opts))

	return cmd
}

// loadConfig merges the config file and environment into opts. Flags given
// on the command line take precedence.
func (o *RootOptions) loadConfig(flags *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault("format", "text")
	v.SetDefault("verbose", false)
	v.SetDefault("schemas", "")
	v.SetDefault("db", "")

	if o.ConfigFile != "" {
		v.SetConfigFile(o.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", o.ConfigFile, err)
		}
	}

	if f := flags.Lookup("format"); f == nil || !f.Changed {
		o.Format = v.GetString("format")
	}
	if f := flags.Lookup("verbose"); f == nil || !f.Changed {
		o.Verbose = v.GetBool("verbose")
	}
	o.Schemas = v.GetString("schemas")
	o.DB = v.GetString("db")
	return nil
}

// Logger returns the logger handed to storage and store components.
// Verbose output enables debug records; otherwise only warnings are shown.
func (o *RootOptions) Logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	if o.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// storageLogger routes storage logs to the formatter's diagnostic writer.
func (o *RootOptions) storageLogger(f *OutputFormatter) workspace.Option {
	return workspace.WithLogger(o.Logger(f.GetErrWriter()))
}

// schemasDir returns arg if given, else the configured schemas directory.
func (o *RootOptions) schemasDir(arg string) string {
	if arg != "" {
		return arg
	}
	return o.Schemas
}

func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
