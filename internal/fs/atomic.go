package fs

import (
	"io"
	"io/fs"
	"path"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

type AtomicWriter struct {
	fs       afero.Fs
	filename string
	tempFile afero.File
}

var _ io.WriteCloser = &AtomicWriter{}

// NewAtomicWriter returns an io.WriteCloser that will write contents to a temp file on fsys and move that temp file to
// the destination filename on Close. If the destination filename already exists, it is first copied to <filename>-old,
// truncating that file if it already exists.
func NewAtomicWriter(fsys afero.Fs, filename string) (*AtomicWriter, error) {
	existingFile, err := fsys.Open(filename)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(err, "error opening existing file")
	}

	if err == nil {
		if err := backup(fsys, existingFile, filename+"-old"); err != nil { //nolint:govet // shadowing err is fine here
			return nil, err
		}
	}

	tempFile, err := afero.TempFile(fsys, path.Dir(filename), path.Base(filename)+"*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, "unable to create temporary file")
	}

	return &AtomicWriter{fs: fsys, filename: filename, tempFile: tempFile}, nil
}

// backup copies src to oldFilename and closes src. Create truncates, so repeated writes keep a single copy.
func backup(fsys afero.Fs, src afero.File, oldFilename string) error {
	defer src.Close()

	oldFile, err := fsys.Create(oldFilename)
	if err != nil {
		return errors.Wrapf(err, "error creating file %s", oldFilename)
	}
	defer oldFile.Close()

	if _, err := io.Copy(oldFile, src); err != nil {
		return errors.Wrapf(err, "error copying existing file %s to destination %s", src.Name(), oldFilename)
	}
	return nil
}

// Close closes the temp file handle and moves the temp file to the final destination
func (a *AtomicWriter) Close() error {
	if err := a.tempFile.Close(); err != nil {
		return errors.Wrapf(err, "unable to close temp file %s", a.tempFile.Name())
	}

	if err := a.fs.Rename(a.tempFile.Name(), a.filename); err != nil {
		return errors.Wrapf(err, "unable to move temp file %s to destination %s", a.tempFile.Name(), a.filename)
	}

	return nil
}

// Write writes the buffer to the temp file. You must call Close() to complete the move from temp file to dest file
func (a *AtomicWriter) Write(p []byte) (int, error) {
	bs, err := a.tempFile.Write(p)
	return bs, errors.Wrap(err, "unable to write to temp file")
}
