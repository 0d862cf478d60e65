// Package files manages the set of open DICOM files: which one is current, which
// ones carry unsaved changes, and batch edits across all of them.
package files

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/mrsinham/dicomedit/internal/bulkedit"
	"github.com/mrsinham/dicomedit/internal/dataset"
	"github.com/mrsinham/dicomedit/internal/util"
)

// ErrNoFile is returned when an operation needs a current file and there is none.
var ErrNoFile = errors.New("no file is open")

// File is one open DICOM file.
type File struct {
	Path     string
	Dataset  *dataset.Dataset
	modified bool
}

// Open reads the file at path.
func Open(path string) (*File, error) {
	ds, err := dataset.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &File{Path: path, Dataset: ds}, nil
}

// Name returns the base name of the file.
func (f *File) Name() string { return filepath.Base(f.Path) }

// Modified reports whether the dataset changed since it was read or saved.
func (f *File) Modified() bool { return f.modified }

// Save writes the dataset back to its path.
func (f *File) Save() error {
	if err := f.Dataset.WriteFile(f.Path); err != nil {
		return err
	}
	f.modified = false
	return nil
}

// Set is the ordered collection of open files. It is not safe for concurrent use.
type Set struct {
	log     logrus.FieldLogger
	files   []*File
	current int

	onChanged []func()
	onEdited  []func()
}

// NewSet returns an empty set logging to log.
func NewSet(log logrus.FieldLogger) *Set {
	return &Set{log: log, current: -1}
}

// Add appends f. The first file added becomes current.
func (s *Set) Add(f *File) {
	s.files = append(s.files, f)
	if s.current < 0 {
		s.current = 0
		s.fire(s.onChanged)
	}
}

// Open reads every path and adds the files that parsed. Failures are returned
// together as a *BatchError.
func (s *Set) Open(paths ...string) error {
	batch := &BatchError{Op: "open"}
	for _, p := range paths {
		f, err := Open(p)
		if err != nil {
			s.log.WithField("file", p).WithError(err).Warn("Cannot open file")
			batch.add(p, err)
			continue
		}
		s.log.WithField("file", p).Debug("Opened file")
		s.Add(f)
	}
	return batch.errOrNil()
}

// Files returns the open files in order.
func (s *Set) Files() []*File { return s.files }

// Len returns the number of open files.
func (s *Set) Len() int { return len(s.files) }

// Current returns the current file, or nil.
func (s *Set) Current() *File {
	if s.current < 0 || s.current >= len(s.files) {
		return nil
	}
	return s.files[s.current]
}

// CurrentIndex returns the position of the current file, or -1.
func (s *Set) CurrentIndex() int { return s.current }

// SetCurrent makes the i-th file current and signals the change.
func (s *Set) SetCurrent(i int) error {
	if i < 0 || i >= len(s.files) {
		return fmt.Errorf("file index %d out of range [0,%d)", i, len(s.files))
	}
	if i == s.current {
		return nil
	}
	s.current = i
	s.fire(s.onChanged)
	return nil
}

// CurrentDataset returns the dataset of the current file, or nil.
func (s *Set) CurrentDataset() *dataset.Dataset {
	if f := s.Current(); f != nil {
		return f.Dataset
	}
	return nil
}

// MarkModified flags the current file as changed.
func (s *Set) MarkModified() {
	if f := s.Current(); f != nil {
		f.modified = true
	}
}

// UnsavedChanges reports whether any file is modified.
func (s *Set) UnsavedChanges() bool {
	for _, f := range s.files {
		if f.modified {
			return true
		}
	}
	return false
}

// Save writes the current file.
func (s *Set) Save() error {
	f := s.Current()
	if f == nil {
		return ErrNoFile
	}
	if err := f.Save(); err != nil {
		return err
	}
	s.log.WithField("file", f.Path).Info("Saved file")
	return nil
}

// SaveAll writes every modified file and reports how many were written.
func (s *Set) SaveAll() (int, error) {
	batch := &BatchError{Op: "save"}
	saved := 0
	for _, f := range s.files {
		if !f.modified {
			continue
		}
		if err := f.Save(); err != nil {
			batch.add(f.Path, err)
			continue
		}
		saved++
		s.log.WithField("file", f.Path).Info("Saved file")
	}
	return saved, batch.errOrNil()
}

// OnCurrentFileChanged registers fn to run whenever the current file changes.
func (s *Set) OnCurrentFileChanged(fn func()) { s.onChanged = append(s.onChanged, fn) }

// OnAllFilesEdited registers fn to run after a batch edit touched the files.
func (s *Set) OnAllFilesEdited(fn func()) { s.onEdited = append(s.onEdited, fn) }

func (s *Set) fire(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

// ApplyAll applies req to every open file. StudyDate is always rejected, whatever
// path form names it. Files where the request fails are reported in a *BatchError
// while the others keep their changes; there is no retry.
func (s *Set) ApplyAll(req bulkedit.Request) error {
	log := s.log.WithFields(logrus.Fields{"tag_path": req.TagPath, "mode": req.Mode})
	if bulkedit.IsForbiddenTagPath(req.TagPath) {
		log.Info("Refused bulk edit of StudyDate")
		return fmt.Errorf("%w: %q", bulkedit.ErrForbiddenTag, req.TagPath)
	}
	segs, err := dataset.ParsePath(req.TagPath)
	if err != nil {
		return err
	}
	if req.Mode == bulkedit.ModeNone {
		return bulkedit.ErrNoMode
	}
	scope := util.ScopeOf(segs[len(segs)-1].Tag)
	log = log.WithField("scope", scope)
	if scope == util.ScopeImage && req.Mode != bulkedit.ModeDelete && len(s.files) > 1 {
		log.Warn("Writing one value to an image-level tag in every file")
	}

	batch := &BatchError{Op: req.Mode.String()}
	touched := 0
	for _, f := range s.files {
		changed, err := apply(f.Dataset, req)
		if err != nil {
			log.WithField("file", f.Path).WithError(err).Warn("Bulk edit failed")
			batch.add(f.Path, err)
		}
		if changed {
			f.modified = true
			touched++
		}
	}
	log.WithFields(logrus.Fields{"files": len(s.files), "touched": touched, "failed": len(batch.Errors)}).
		Info("Applied bulk edit")
	s.fire(s.onEdited)
	return batch.errOrNil()
}

// apply runs req against one dataset and reports whether the dataset changed.
func apply(ds *dataset.Dataset, req bulkedit.Request) (bool, error) {
	root := ds.Root()
	switch req.Mode {
	case bulkedit.ModeSet:
		if err := ds.ResolveAndSet(req.TagPath, req.Value, true, root); err != nil {
			return false, err
		}
		return true, nil
	case bulkedit.ModeSetExisting:
		nodes, err := ds.Lookup(req.TagPath, root)
		if err != nil {
			return false, err
		}
		if len(nodes) == 0 {
			return false, nil
		}
		if err := ds.ResolveAndSet(req.TagPath, req.Value, false, root); err != nil {
			return false, err
		}
		return true, nil
	case bulkedit.ModeDelete:
		n, err := ds.DeletePath(req.TagPath, root)
		return n > 0, err
	default:
		return false, fmt.Errorf("%w: %v", bulkedit.ErrNoMode, req.Mode)
	}
}
