// Package editor is the interactive terminal editor: a tree browser over the
// current file with value, add, and bulk edit dialogs.
package editor

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/mrsinham/dicomedit/cmd/dicomedit/editor/screens"
	"github.com/mrsinham/dicomedit/internal/bulkedit"
	"github.com/mrsinham/dicomedit/internal/files"
	"github.com/mrsinham/dicomedit/internal/model"
)

// Phase represents the current screen of the editor.
type Phase int

const (
	PhaseTree Phase = iota
	PhaseEditValue
	PhaseAddElement
	PhaseBulkEdit
	PhaseSavePreset
	PhaseReport
)

// Editor is the main orchestrator for the terminal interface.
type Editor struct {
	files      *files.Set
	model      *model.Model
	cfg        *Config
	configPath string
	log        logrus.FieldLogger

	phase Phase

	tree         *screens.TreeScreen
	valueScreen  *screens.ValueScreen
	addScreen    *screens.AddScreen
	bulkScreen   *screens.BulkScreen
	presetScreen *screens.PresetScreen
	reportScreen *screens.ReportScreen

	// target is the node the open value or add dialog works on
	target   model.Index
	lastBulk *bulkedit.Request

	quitArmed bool
	width     int
	height    int
}

// New creates an editor over fs, browsing through m. Presets are saved to
// configPath; an empty path disables saving them.
func New(fs *files.Set, m *model.Model, cfg *Config, configPath string, log logrus.FieldLogger) *Editor {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Editor{
		files:      fs,
		model:      m,
		cfg:        cfg,
		configPath: configPath,
		log:        log,
		phase:      PhaseTree,
		tree:       screens.NewTreeScreen(m, fs),
	}
}

// Phase returns the active screen.
func (e *Editor) Phase() Phase { return e.phase }

// Tree returns the browser screen.
func (e *Editor) Tree() *screens.TreeScreen { return e.tree }

// Init implements tea.Model.
func (e *Editor) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (e *Editor) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if wsm, ok := msg.(tea.WindowSizeMsg); ok {
		e.width = wsm.Width
		e.height = wsm.Height
		if e.phase != PhaseTree {
			e.tree.Update(wsm)
		}
	}

	switch e.phase {
	case PhaseEditValue:
		return e.updateEditValue(msg)
	case PhaseAddElement:
		return e.updateAddElement(msg)
	case PhaseBulkEdit:
		return e.updateBulkEdit(msg)
	case PhaseSavePreset:
		return e.updateSavePreset(msg)
	case PhaseReport:
		return e.updateReport(msg)
	default:
		return e.updateTree(msg)
	}
}

// View implements tea.Model.
func (e *Editor) View() string {
	switch e.phase {
	case PhaseEditValue:
		return e.valueScreen.View()
	case PhaseAddElement:
		return e.addScreen.View()
	case PhaseBulkEdit:
		return e.bulkScreen.View()
	case PhaseSavePreset:
		return e.presetScreen.View()
	case PhaseReport:
		return e.reportScreen.View()
	default:
		return e.tree.View()
	}
}

// sized forwards the last known window size to a newly created screen.
func (e *Editor) sized(m tea.Model) tea.Cmd {
	if e.width == 0 {
		return m.Init()
	}
	_, cmd := m.Update(tea.WindowSizeMsg{Width: e.width, Height: e.height})
	return tea.Batch(m.Init(), cmd)
}

func (e *Editor) updateTree(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() != "q" {
		e.quitArmed = false
	}
	_, cmd := e.tree.Update(msg)

	switch e.tree.Action() {
	case screens.ActionQuit:
		if e.files.UnsavedChanges() && !e.quitArmed {
			e.quitArmed = true
			e.tree.SetStatus("Unsaved changes: press q again to quit, S to save all")
			return e, nil
		}
		e.tree.Close()
		return e, tea.Quit
	case screens.ActionEditValue:
		return e.transitionToEditValue()
	case screens.ActionAddElement:
		return e.transitionToAddElement()
	case screens.ActionBulkEdit:
		return e.transitionToBulkEdit()
	case screens.ActionSavePreset:
		return e.transitionToSavePreset()
	}
	return e, cmd
}

func (e *Editor) label(idx model.Index) string {
	if idx.IsRoot() {
		return "the dataset"
	}
	return fmt.Sprint(e.model.Data(idx.Sibling(model.ColumnTag), model.RoleDisplay))
}

func (e *Editor) transitionToEditValue() (tea.Model, tea.Cmd) {
	e.target = e.tree.Selected().Sibling(model.ColumnValue)
	current, _ := e.model.Data(e.target, model.RoleEdit).(string)
	e.valueScreen = screens.NewValueScreen(e.label(e.target), current)
	e.phase = PhaseEditValue
	return e, e.sized(e.valueScreen)
}

func (e *Editor) updateEditValue(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := e.valueScreen.Update(msg)
	switch {
	case e.valueScreen.Cancelled():
		e.phase = PhaseTree
		return e, nil
	case e.valueScreen.Done():
		text, path := e.valueScreen.Value()
		var err error
		if path != "" {
			err = e.model.SetValueFromFile(e.target, path)
		} else {
			err = e.model.SetValue(e.target, text)
		}
		e.phase = PhaseTree
		if err != nil {
			e.log.WithError(err).Warn("Edit failed")
			e.tree.SetStatus(bulkedit.NewReport(err).String())
		}
		return e, nil
	}
	return e, cmd
}

// transitionToAddElement targets the selected container, or the container of the
// selected element or sequence.
func (e *Editor) transitionToAddElement() (tea.Model, tea.Cmd) {
	idx := e.tree.Selected()
	switch e.model.ValueKind(idx) {
	case model.ValueItem, model.ValueDataset:
	default:
		idx = e.model.Parent(idx)
	}
	e.target = idx
	e.addScreen = screens.NewAddScreen(e.label(idx))
	e.phase = PhaseAddElement
	return e, e.sized(e.addScreen)
}

func (e *Editor) updateAddElement(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := e.addScreen.Update(msg)
	switch {
	case e.addScreen.Cancelled():
		e.phase = PhaseTree
		return e, nil
	case e.addScreen.Done():
		tagPath, value := e.addScreen.Result()
		e.phase = PhaseTree
		if err := e.model.AddElement(e.target, tagPath, value); err != nil {
			e.log.WithError(err).WithField("tag_path", tagPath).Warn("Add element failed")
			e.tree.SetStatus(err.Error())
		} else {
			e.tree.SetStatus("Added " + tagPath)
		}
		return e, nil
	}
	return e, cmd
}

func (e *Editor) transitionToBulkEdit() (tea.Model, tea.Cmd) {
	if e.files.Len() == 0 {
		e.tree.SetStatus(files.ErrNoFile.Error())
		return e, nil
	}
	e.bulkScreen = screens.NewBulkScreen(e.files.Len())
	e.phase = PhaseBulkEdit
	return e, e.sized(e.bulkScreen)
}

func (e *Editor) updateBulkEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := e.bulkScreen.Update(msg)
	switch {
	case e.bulkScreen.Cancelled():
		e.phase = PhaseTree
		return e, nil
	case e.bulkScreen.Done():
		req, err := e.bulkScreen.Result()
		if err == nil {
			err = e.files.ApplyAll(req)
			e.lastBulk = &req
		}
		if err != nil {
			return e.transitionToReport("Bulk edit failed", err)
		}
		e.phase = PhaseTree
		e.tree.SetStatus(fmt.Sprintf("%s %s in %d file(s)", req.Mode.Label(), req.TagPath, e.files.Len()))
		return e, nil
	}
	return e, cmd
}

func (e *Editor) transitionToSavePreset() (tea.Model, tea.Cmd) {
	switch {
	case e.lastBulk == nil:
		e.tree.SetStatus("No bulk edit to save")
		return e, nil
	case e.configPath == "":
		e.tree.SetStatus("No configuration file: start with --config to save presets")
		return e, nil
	}
	e.presetScreen = screens.NewPresetScreen(*e.lastBulk)
	e.phase = PhaseSavePreset
	return e, e.sized(e.presetScreen)
}

func (e *Editor) updateSavePreset(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := e.presetScreen.Update(msg)
	switch {
	case e.presetScreen.Cancelled():
		e.phase = PhaseTree
		return e, nil
	case e.presetScreen.Done():
		name := e.presetScreen.Name()
		e.cfg.PutPreset(PresetFromRequest(name, *e.lastBulk))
		if err := SaveToYAML(e.cfg, e.configPath); err != nil {
			return e.transitionToReport("Saving preset failed", err)
		}
		e.log.WithFields(logrus.Fields{"preset": name, "config": e.configPath}).Info("Saved preset")
		e.phase = PhaseTree
		e.tree.SetStatus(fmt.Sprintf("Saved preset %q", name))
		return e, nil
	}
	return e, cmd
}

func (e *Editor) transitionToReport(title string, err error) (tea.Model, tea.Cmd) {
	e.reportScreen = screens.NewReportScreen(title, err)
	e.phase = PhaseReport
	return e, nil
}

func (e *Editor) updateReport(msg tea.Msg) (tea.Model, tea.Cmd) {
	e.reportScreen.Update(msg)
	if e.reportScreen.Done() {
		e.phase = PhaseTree
	}
	return e, nil
}

// Run starts the editor over fs in the terminal.
func Run(fs *files.Set, cfg *Config, configPath string, log logrus.FieldLogger) error {
	if fs.Len() == 0 {
		return files.ErrNoFile
	}
	if cfg == nil {
		cfg = &Config{}
	}
	visibility, err := cfg.VisibilityPolicy()
	if err != nil {
		return err
	}
	m := model.New(fs, model.WithVisibility(visibility))
	cancel := m.Subscribe(LogEvents(log, m))
	defer cancel()

	p := tea.NewProgram(New(fs, m, cfg, configPath, log), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running editor: %w", err)
	}
	if fs.UnsavedChanges() {
		log.Warn("Quit with unsaved changes")
	}
	return nil
}

// LogEvents returns an observer that logs model events: refusals at info level,
// storage failures at warn level and everything else at debug level.
func LogEvents(log logrus.FieldLogger, m *model.Model) func(model.Event) {
	return func(ev model.Event) {
		entry := log.WithField("event", ev.Kind.String())
		switch ev.Kind {
		case model.EventEditRefused:
			entry.WithField("tag", m.Data(ev.Index.Sibling(model.ColumnTag), model.RoleDisplay)).
				Info("Refused edit of a read-only element")
		case model.EventEditFailed:
			entry.WithError(ev.Err).Warn("Edit rejected")
		case model.EventRowsInserted, model.EventRowsRemoved:
			entry.WithFields(logrus.Fields{"first": ev.First, "last": ev.Last}).Debug("Rows changed")
		default:
			entry.Debug("Model changed")
		}
	}
}

