package editor

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/suyashkumar/dicom/pkg/tag"

	"github.com/mrsinham/dicomedit/internal/bulkedit"
	"github.com/mrsinham/dicomedit/internal/dataset/datasettest"
	"github.com/mrsinham/dicomedit/internal/files"
	"github.com/mrsinham/dicomedit/internal/model"
)

func newEditor(t *testing.T, n int, v model.Visibility) (*Editor, *files.Set) {
	t.Helper()
	log, _ := test.NewNullLogger()
	fs := files.NewSet(log)
	for i := 0; i < n; i++ {
		fs.Add(&files.File{Path: filepath.Join(t.TempDir(), "f.dcm"), Dataset: datasettest.New(t, 2)})
	}
	m := model.New(fs, model.WithVisibility(v))
	return New(fs, m, nil, "", log), fs
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(e *Editor, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = e.Update(key(k))
	}
	return cmd
}

func rowCount(e *Editor) int {
	return strings.Count(e.tree.View(), "\n")
}

func TestTree_HiddenShowsWhitelistOnly(t *testing.T) {
	e, _ := newEditor(t, 1, model.VisibilityHidden)
	view := e.View()

	for _, want := range []string{"(0010,0010) PatientName", "(0010,0020) PatientID", "(0020,000d) StudyInstanceUID"} {
		if !strings.Contains(view, want) {
			t.Errorf("%s should be listed:\n%s", want, view)
		}
	}
	for _, hidden := range []string{"StudyDate", "Modality", "OtherPatientIDsSequence", "PatientComments"} {
		if strings.Contains(view, hidden) {
			t.Errorf("%s should be hidden:\n%s", hidden, view)
		}
	}
}

func TestTree_DisabledShowsPlaceholder(t *testing.T) {
	e, _ := newEditor(t, 1, model.VisibilityDisabled)
	if !strings.Contains(e.View(), model.LargeValuePlaceholder[:20]) {
		t.Errorf("the long comment should show the placeholder:\n%s", e.View())
	}
}

func TestTree_ExpandSequence(t *testing.T) {
	e, _ := newEditor(t, 1, model.VisibilityDisabled)
	before := rowCount(e)

	// OtherPatientIDsSequence is the eighth root element.
	press(e, "j", "j", "j", "j", "j", "j", "j")
	if got := e.model.ValueKind(e.tree.Selected()); got != model.ValueSequence {
		t.Fatalf("selected kind = %v, want sequence", got)
	}
	press(e, "l")
	if got := rowCount(e) - before; got != 2 {
		t.Errorf("expanding showed %d rows, want 2 items", got)
	}
	press(e, "h")
	if got := rowCount(e); got != before {
		t.Errorf("collapsing left %d lines, want %d", got, before)
	}
}

func TestTree_RefusedEditStaysInTree(t *testing.T) {
	e, fs := newEditor(t, 1, model.VisibilityDisabled)
	var events []model.Event
	e.model.Subscribe(func(ev model.Event) { events = append(events, ev) })

	press(e, "enter")
	if len(events) != 0 {
		t.Errorf("opening a read-only element must not call into the model, got %v", events)
	}
	if e.Phase() != PhaseTree {
		t.Fatalf("phase = %v, want tree", e.Phase())
	}
	if !strings.Contains(e.tree.Status(), "cannot be edited") {
		t.Errorf("status = %q", e.tree.Status())
	}
	if fs.UnsavedChanges() {
		t.Error("a refused edit must not modify the file")
	}
}

func TestTree_EditValueOpensAndCancels(t *testing.T) {
	e, _ := newEditor(t, 1, model.VisibilityHidden)

	press(e, "enter")
	if e.Phase() != PhaseEditValue {
		t.Fatalf("phase = %v, want edit value", e.Phase())
	}
	if !strings.Contains(e.View(), "PatientName") {
		t.Errorf("value form should name the element:\n%s", e.View())
	}
	press(e, "esc")
	if e.Phase() != PhaseTree {
		t.Errorf("phase = %v after esc, want tree", e.Phase())
	}
}

func TestTree_DeleteAndQuit(t *testing.T) {
	e, fs := newEditor(t, 1, model.VisibilityHidden)

	press(e, "d")
	if _, ok := e.model.FindTag(model.Index{}, tag.PatientName); ok {
		t.Fatal("PatientName should be deleted")
	}
	if !fs.UnsavedChanges() {
		t.Fatal("delete should mark the file modified")
	}

	if cmd := press(e, "q"); cmd != nil {
		t.Fatal("first q with unsaved changes must not quit")
	}
	if !strings.Contains(e.tree.Status(), "Unsaved changes") {
		t.Errorf("status = %q", e.tree.Status())
	}
	if cmd := press(e, "q"); cmd == nil {
		t.Fatal("second q should quit")
	}
}

func TestTree_AddItem(t *testing.T) {
	e, fs := newEditor(t, 1, model.VisibilityDisabled)
	before := rowCount(e)

	press(e, "j", "j", "j", "j", "j", "j", "j", "i")
	if got := rowCount(e) - before; got != 3 {
		t.Errorf("adding an item showed %d rows, want 3 (the sequence expands)", got)
	}
	if !fs.Current().Modified() {
		t.Error("file should be modified")
	}

	// An item cannot be added to a plain element.
	press(e, "g", "i")
	if e.tree.Status() == "" {
		t.Error("adding an item to an element should report an error")
	}
}

func TestTree_SwitchFile(t *testing.T) {
	e, fs := newEditor(t, 2, model.VisibilityHidden)

	press(e, "n")
	if fs.CurrentIndex() != 1 {
		t.Fatalf("current = %d, want 1", fs.CurrentIndex())
	}
	if e.model.Dataset() != fs.Files()[1].Dataset {
		t.Error("model should follow the current file")
	}
	press(e, "p")
	if fs.CurrentIndex() != 0 {
		t.Errorf("current = %d, want 0", fs.CurrentIndex())
	}
}

func TestBulkEdit_OpensAndCancels(t *testing.T) {
	e, _ := newEditor(t, 2, model.VisibilityHidden)

	press(e, "b")
	if e.Phase() != PhaseBulkEdit {
		t.Fatalf("phase = %v, want bulk edit", e.Phase())
	}
	if !strings.Contains(e.View(), "all 2 open file(s)") {
		t.Errorf("bulk dialog should count the files:\n%s", e.View())
	}
	press(e, "esc")
	if e.Phase() != PhaseTree {
		t.Errorf("phase = %v after esc, want tree", e.Phase())
	}
}

func TestSavePreset_NeedsBulkEditAndConfig(t *testing.T) {
	e, _ := newEditor(t, 1, model.VisibilityHidden)

	press(e, "P")
	if e.Phase() != PhaseTree || e.tree.Status() != "No bulk edit to save" {
		t.Errorf("phase = %v, status = %q", e.Phase(), e.tree.Status())
	}

	e.lastBulk = &bulkedit.Request{TagPath: "PatientName", Value: "ANON", Mode: bulkedit.ModeSet}
	press(e, "P")
	if !strings.Contains(e.tree.Status(), "--config") {
		t.Errorf("status = %q", e.tree.Status())
	}

	e.configPath = filepath.Join(t.TempDir(), "dicomedit.yaml")
	press(e, "P")
	if e.Phase() != PhaseSavePreset {
		t.Errorf("phase = %v, want save preset", e.Phase())
	}
}

func TestReport_BatchFailure(t *testing.T) {
	e, _ := newEditor(t, 1, model.VisibilityHidden)

	e.transitionToReport("Bulk edit failed", &files.BatchError{Op: "set", Errors: []*files.FileError{
		{Path: "a.dcm", Err: bulkedit.ErrNoMode},
	}})
	view := e.View()
	if !strings.Contains(view, bulkedit.BatchFailedMessage) || !strings.Contains(view, "a.dcm") {
		t.Errorf("report view:\n%s", view)
	}
	press(e, "enter")
	if e.Phase() != PhaseTree {
		t.Errorf("phase = %v, want tree", e.Phase())
	}
}

func TestLogEvents(t *testing.T) {
	e, _ := newEditor(t, 1, model.VisibilityDisabled)
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	e.model.Subscribe(LogEvents(log, e.model))

	if err := e.model.SetValue(e.tree.Selected(), "x"); err != nil {
		t.Fatalf("SetValue: %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.InfoLevel || entry.Data["event"] != "edit_refused" {
		t.Fatalf("last entry = %+v", entry)
	}

	press(e, "d")
	entry = hook.LastEntry()
	if entry.Level != logrus.DebugLevel || entry.Data["event"] != "rows_removed" {
		t.Errorf("last entry = %+v", entry)
	}
}
