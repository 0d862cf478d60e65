package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/editor"
	"github.com/mrsinham/dicomedit/internal/dataset"
	"github.com/mrsinham/dicomedit/internal/model"
)

// errRefused is returned when the model refused a value edit on a read-only tag.
var errRefused = errors.New("element is not editable")

// editFile opens path, runs fn against a model over it and saves the file when
// fn changed it.
func (a *app) editFile(cmd *cobra.Command, path string, fn func(m *model.Model, ds *dataset.Dataset) error) error {
	set, err := a.openAll([]string{path})
	if err != nil {
		return err
	}
	m := model.New(set, model.WithVisibility(a.visibility))
	m.Subscribe(editor.LogEvents(a.log, m))
	var refused []string
	m.Subscribe(func(ev model.Event) {
		if ev.Kind == model.EventEditRefused {
			refused = append(refused, fmt.Sprint(m.Data(ev.Index.Sibling(model.ColumnTag), model.RoleDisplay)))
		}
	})

	if err := fn(m, set.CurrentDataset()); err != nil {
		return err
	}
	if len(refused) > 0 {
		return fmt.Errorf("%w: %s", errRefused, refused[0])
	}
	if !set.UnsavedChanges() {
		return nil
	}
	if err := set.Save(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", path)
	return nil
}

// resolve returns the indexes of every node tagPath addresses from the root.
func resolve(m *model.Model, ds *dataset.Dataset, tagPath string, column int) ([]model.Index, error) {
	nodes, err := ds.Lookup(tagPath, ds.Root())
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", dataset.ErrNotFound, tagPath)
	}
	out := make([]model.Index, len(nodes))
	for i, n := range nodes {
		out[i] = m.IndexOf(n.Handle(), column)
	}
	return out, nil
}

func requireTag(cmd *cobra.Command) error {
	return cmd.MarkFlagRequired("tag")
}

func newSetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set FILE",
		Short: "Set the value of an editable element",
		Long:  "Set the value of PatientName, PatientID or StudyInstanceUID. Other elements are read-only.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tagPath, _ := cmd.Flags().GetString("tag")
			value, _ := cmd.Flags().GetString("value")
			return a.editFile(cmd, args[0], func(m *model.Model, ds *dataset.Dataset) error {
				targets, err := resolve(m, ds, tagPath, model.ColumnValue)
				if err != nil {
					return err
				}
				for _, idx := range targets {
					if err := m.SetValue(idx, value); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringP("tag", "t", "", "Tag path of the element")
	f.StringP("value", "v", "", `New value; separate multiple values with '\'`)
	_ = requireTag(cmd)
	return cmd
}

func newSetFileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-file FILE",
		Short: "Replace an editable element's value with the raw bytes of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tagPath, _ := cmd.Flags().GetString("tag")
			from, _ := cmd.Flags().GetString("from")
			return a.editFile(cmd, args[0], func(m *model.Model, ds *dataset.Dataset) error {
				targets, err := resolve(m, ds, tagPath, model.ColumnValue)
				if err != nil {
					return err
				}
				for _, idx := range targets {
					if err := m.SetValueFromFile(idx, from); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringP("tag", "t", "", "Tag path of the element")
	f.String("from", "", "File holding the new value; its length must be even")
	_ = requireTag(cmd)
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newAddCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add FILE",
		Short: "Add an element, creating missing sequences and items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tagPath, _ := cmd.Flags().GetString("tag")
			value, _ := cmd.Flags().GetString("value")
			parentPath, _ := cmd.Flags().GetString("parent")
			return a.editFile(cmd, args[0], func(m *model.Model, ds *dataset.Dataset) error {
				parent := model.Index{}
				if parentPath != "" {
					targets, err := resolve(m, ds, parentPath, model.ColumnTag)
					if err != nil {
						return err
					}
					if len(targets) != 1 {
						return fmt.Errorf("%w: --parent %s addresses %d nodes", model.ErrResolution, parentPath, len(targets))
					}
					parent = targets[0]
				}
				return m.AddElement(parent, tagPath, value)
			})
		},
	}
	f := cmd.Flags()
	f.StringP("tag", "t", "", "Tag path of the new element, relative to --parent")
	f.StringP("value", "v", "", "Value of the new element")
	f.String("parent", "", "Tag path of the item to add into (default: the dataset)")
	_ = requireTag(cmd)
	return cmd
}

func newAddItemCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add-item FILE",
		Short: "Append an empty item to a sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tagPath, _ := cmd.Flags().GetString("tag")
			return a.editFile(cmd, args[0], func(m *model.Model, ds *dataset.Dataset) error {
				targets, err := resolve(m, ds, tagPath, model.ColumnTag)
				if err != nil {
					return err
				}
				for _, idx := range targets {
					if err := m.AddItem(idx); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringP("tag", "t", "", "Tag path of the sequence")
	_ = requireTag(cmd)
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete FILE",
		Short: "Delete the elements a tag path addresses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tagPath, _ := cmd.Flags().GetString("tag")
			return a.editFile(cmd, args[0], func(m *model.Model, ds *dataset.Dataset) error {
				targets, err := resolve(m, ds, tagPath, model.ColumnTag)
				if err != nil {
					return err
				}
				for _, idx := range targets {
					if err := m.Delete(idx); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringP("tag", "t", "", "Tag path of the element, sequence or item")
	_ = requireTag(cmd)
	return cmd
}
