package cli

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/editor"
	"github.com/mrsinham/dicomedit/internal/bulkedit"
	"github.com/mrsinham/dicomedit/internal/dataset"
	"github.com/mrsinham/dicomedit/internal/files"
)

var (
	errNoConfig      = errors.New("no configuration file: pass --config")
	errUnknownPreset = errors.New("unknown preset")
)

type bulkFlags struct {
	tagPath     string
	value       string
	mode        string
	preset      string
	savePreset  string
	generateUID bool
}

func newBulkCmd(a *app) *cobra.Command {
	var bf bulkFlags
	cmd := &cobra.Command{
		Use:   "bulk FILE...",
		Short: "Apply one edit to every file",
		Long: `Apply one (tag path, value, mode) edit to every file and save the files it changed.
StudyDate (0008,0020) cannot be bulk edited. Files where the edit fails are listed;
the others keep their change.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := a.bulkRequest(bf)
			if err != nil {
				return err
			}
			set, err := a.openAll(args)
			if err != nil {
				return err
			}
			return a.runBulk(cmd, set, req, bf.savePreset)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&bf.tagPath, "tag", "t", "", "Tag path, e.g. PatientName or OtherPatientIDsSequence[*].IssuerOfPatientID")
	f.StringVarP(&bf.value, "value", "v", "", `New value; separate multiple values with '\'`)
	f.StringVarP(&bf.mode, "mode", "m", bulkedit.ModeSet.String(), "set, set-existing or delete")
	f.StringVar(&bf.preset, "preset", "", "Run a preset from the configuration file")
	f.StringVar(&bf.savePreset, "save-preset", "", "Save this edit as a preset under the given name")
	f.BoolVar(&bf.generateUID, "generate-uid", false, "Use one freshly generated UID as the value")
	cmd.MarkFlagsMutuallyExclusive("preset", "tag")
	cmd.MarkFlagsMutuallyExclusive("generate-uid", "value")
	return cmd
}

// bulkRequest builds the request from the flags or a preset. Both go through the
// Builder so the StudyDate guard applies to presets too.
func (a *app) bulkRequest(bf bulkFlags) (bulkedit.Request, error) {
	if bf.preset != "" {
		p, ok := a.cfg.Preset(bf.preset)
		if !ok {
			return bulkedit.Request{}, fmt.Errorf("%w %q", errUnknownPreset, bf.preset)
		}
		req, err := p.Request()
		if err != nil {
			return bulkedit.Request{}, err
		}
		bf.tagPath, bf.value, bf.mode = req.TagPath, req.Value, req.Mode.String()
	}

	mode, err := bulkedit.ParseMode(bf.mode)
	if err != nil {
		return bulkedit.Request{}, err
	}
	if bf.generateUID {
		bf.value = dataset.NewUID()
	}

	b := bulkedit.NewBuilder()
	b.SetTagPath(bf.tagPath)
	b.SetMode(mode)
	b.SetValue(bf.value)
	return b.Confirm()
}

func (a *app) runBulk(cmd *cobra.Command, set *files.Set, req bulkedit.Request, savePreset string) error {
	applyErr := set.ApplyAll(req)
	saved, saveErr := set.SaveAll()
	a.log.WithFields(logrus.Fields{"tag_path": req.TagPath, "mode": req.Mode, "saved": saved}).Info("Bulk edit done")
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d of %d file(s) changed\n", req.Mode.Label(), req.TagPath, saved, set.Len())

	if applyErr != nil {
		if saveErr != nil {
			a.log.WithError(saveErr).Error("Saving failed")
		}
		return applyErr
	}
	if saveErr != nil {
		return saveErr
	}
	if savePreset == "" {
		return nil
	}
	if a.configPath == "" {
		return errNoConfig
	}
	a.cfg.PutPreset(editor.PresetFromRequest(savePreset, req))
	if err := editor.SaveToYAML(a.cfg, a.configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved preset %q to %s\n", savePreset, a.configPath)
	return nil
}

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse FILE...",
		Short: "Open the files in the interactive editor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set := files.NewSet(a.log)
			if err := set.Open(args...); err != nil {
				if set.Len() == 0 {
					return err
				}
				a.log.WithError(err).Warn("Some files could not be opened")
			}
			return editor.Run(set, a.cfg, a.configPath, a.log)
		},
	}
}
