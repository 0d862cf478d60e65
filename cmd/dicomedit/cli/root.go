// Package cli holds the dicomedit cobra commands.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/editor"
	"github.com/mrsinham/dicomedit/internal/files"
	"github.com/mrsinham/dicomedit/internal/logging"
	"github.com/mrsinham/dicomedit/internal/model"
)

// app is the state the root command prepares for every subcommand.
type app struct {
	configPath string
	cfg        *editor.Config
	visibility model.Visibility
	log        *logrus.Logger
	closeLog   func() error
}

// NewRoot returns the dicomedit command tree.
func NewRoot(version string) *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "dicomedit",
		Short:         "Inspect and edit DICOM metadata",
		Long:          "Browse the element tree of DICOM files, edit the whitelisted patient fields and apply bulk edits across many files.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}
	cmd.AddCommand(
		newVersionCmd(version),
		newShowCmd(a),
		newSetCmd(a),
		newSetFileCmd(a),
		newAddCmd(a),
		newAddItemCmd(a),
		newDeleteCmd(a),
		newBulkCmd(a),
		newBrowseCmd(a),
	)
	pf := cmd.PersistentFlags()
	pf.String("config", "", "YAML configuration file (log settings, visibility, bulk edit presets)")
	pf.String("log-level", "", "Log level (debug, info, warn, error); overrides the configuration")
	pf.String("log-file", "", "Write logs to this file, rotated by size")
	pf.String("visibility", "", "Non-editable elements: hidden or disabled; overrides the configuration")
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	a.configPath, _ = cmd.Flags().GetString("config")
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v, _ := cmd.Flags().GetString("log-file"); v != "" {
		cfg.LogFile = v
	}
	if v, _ := cmd.Flags().GetString("visibility"); v != "" {
		cfg.Visibility = v
	}
	a.visibility, err = cfg.VisibilityPolicy()
	if err != nil {
		return err
	}

	a.log, a.closeLog = logging.New(logging.Options{
		Level:  cfg.LogLevel,
		File:   cfg.LogFile,
		Output: cmd.ErrOrStderr(),
	})
	a.log.WithFields(logrus.Fields{"command": cmd.Name(), "config": a.configPath}).Debug("Starting")
	return nil
}

// loadConfig reads path. A missing file yields an empty configuration so that
// presets can be saved to a new file.
func loadConfig(path string) (*editor.Config, error) {
	if path == "" {
		return &editor.Config{}, nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return &editor.Config{}, nil
	}
	return editor.LoadFromYAML(path)
}

// openAll opens every path; any file that cannot be read fails the command.
func (a *app) openAll(paths []string) (*files.Set, error) {
	set := files.NewSet(a.log)
	if err := set.Open(paths...); err != nil {
		return nil, err
	}
	return set, nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the dicomedit version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
