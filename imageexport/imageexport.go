// Package imageexport produces a root filesystem directory from a built container image.
package imageexport

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cort-runtime/cortnet/platform"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// DefaultRuntime is the container runtime CLI used when none is configured.
	DefaultRuntime = "docker"

	rootfsDir       = "rootfs"
	containerPrefix = "cortnet-export-"
)

var (
	// ErrUnsafePath is returned for archive entries that would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
	// ErrInvalidImage is returned for an empty image reference.
	ErrInvalidImage = errors.New("invalid image reference")
)

// Exporter turns an image reference into a root filesystem under destDir.
type Exporter interface {
	Export(ctx context.Context, image, destDir string) (string, error)
}

// RuntimeExporter exports images through a container runtime CLI such as docker or podman.
type RuntimeExporter struct {
	runtime  string
	plClient platform.ExecClient
	fs       afero.Fs
	newID    func() string
	logger   *zap.Logger
}

func NewRuntimeExporter(runtime string, plc platform.ExecClient, fsys afero.Fs, logger *zap.Logger) *RuntimeExporter {
	if runtime == "" {
		runtime = DefaultRuntime
	}
	return &RuntimeExporter{
		runtime:  runtime,
		plClient: plc,
		fs:       fsys,
		newID:    func() string { return uuid.New().String() },
		logger:   logger.With(zap.String("component", "imageexport")),
	}
}

// Export creates a stopped container from image, exports its filesystem and unpacks it into
// <destDir>/rootfs. The container and the intermediate archive are always removed.
func (e *RuntimeExporter) Export(ctx context.Context, image, destDir string) (string, error) {
	if strings.TrimSpace(image) == "" {
		return "", ErrInvalidImage
	}
	if destDir == "" {
		return "", errors.New("destination directory is empty")
	}

	name := containerPrefix + e.newID()
	archive := filepath.Join(destDir, name+".tar")
	rootfs := filepath.Join(destDir, rootfsDir)

	if err := e.fs.MkdirAll(destDir, 0o755); err != nil { //nolint:gomnd // directory mode
		return "", errors.Wrapf(err, "failed to create %s", destDir)
	}

	e.logger.Info("Exporting image", zap.String("image", image), zap.String("container", name), zap.String("rootfs", rootfs))
	if _, err := e.plClient.ExecuteCommand(ctx, e.runtime, "create", "--name", name, image); err != nil {
		return "", errors.Wrapf(err, "failed to create container from %s", image)
	}
	defer func() {
		if _, err := e.plClient.ExecuteCommand(context.Background(), e.runtime, "rm", name); err != nil {
			e.logger.Error("Failed to remove export container", zap.String("container", name), zap.Error(err))
		}
	}()

	if _, err := e.plClient.ExecuteCommand(ctx, e.runtime, "export", "-o", archive, name); err != nil {
		return "", errors.Wrapf(err, "failed to export container %s", name)
	}
	defer func() {
		if err := e.fs.Remove(archive); err != nil && !errors.Is(err, os.ErrNotExist) {
			e.logger.Error("Failed to remove archive", zap.String("archive", archive), zap.Error(err))
		}
	}()

	f, err := e.fs.Open(archive)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open %s", archive)
	}
	defer f.Close()

	if err := Extract(e.fs, f, rootfs, e.logger); err != nil {
		return "", err
	}
	return rootfs, nil
}

// Extract unpacks a tar stream into dest. Directories, regular files, symlinks and hard links
// are restored; device nodes and fifos are skipped.
func Extract(fsys afero.Fs, r io.Reader, dest string, logger *zap.Logger) error {
	if err := fsys.MkdirAll(dest, 0o755); err != nil { //nolint:gomnd // directory mode
		return errors.Wrapf(err, "failed to create %s", dest)
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return errors.Wrap(err, "failed to read archive")
		}

		target, err := securePath(dest, hdr.Name)
		if err != nil {
			return err
		}
		mode := os.FileMode(hdr.Mode).Perm()

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := mkdirParents(fsys, dest, target); err != nil {
				return err
			}
			if err := fsys.MkdirAll(target, mode|0o700); err != nil { //nolint:gomnd // owner must traverse
				return errors.Wrapf(err, "failed to create %s", target)
			}
		case tar.TypeReg:
			if err := writeFile(fsys, dest, target, tr, mode); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := symlink(fsys, dest, target, hdr.Linkname); err != nil {
				return err
			}
		case tar.TypeLink:
			src, err := securePath(dest, hdr.Linkname)
			if err != nil {
				return err
			}
			if err := link(fsys, dest, src, target, mode); err != nil {
				return err
			}
		default:
			logger.Debug("Skipping archive entry", zap.String("name", hdr.Name), zap.Int("type", int(hdr.Typeflag)))
		}
	}
}

// securePath joins name onto dest. Leading slashes are dropped and names that climb out of
// dest are rejected.
func securePath(dest, name string) (string, error) {
	rel := filepath.Clean(strings.TrimLeft(name, "/"))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return "", errors.Wrapf(ErrUnsafePath, "%s", name)
	}
	return filepath.Join(dest, rel), nil
}

func writeFile(fsys afero.Fs, dest, target string, r io.Reader, mode os.FileMode) error {
	if err := mkdirParents(fsys, dest, target); err != nil {
		return err
	}
	if lst, ok := fsys.(afero.Lstater); ok {
		if fi, _, err := lst.LstatIfPossible(target); err == nil && fi.Mode()&os.ModeSymlink != 0 {
			if err := fsys.Remove(target); err != nil {
				return errors.Wrapf(err, "failed to replace symlink %s", target)
			}
		}
	}
	f, err := fsys.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", target)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "failed to write %s", target)
	}
	return errors.Wrapf(f.Close(), "failed to close %s", target)
}

// symlink recreates a link. Absolute link targets are kept as they are: they resolve inside the
// root filesystem once it is in use, and nothing is written through a link during extraction.
func symlink(fsys afero.Fs, dest, target, linkname string) error {
	if !filepath.IsAbs(linkname) {
		rel, err := filepath.Rel(dest, target)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve %s", target)
		}
		resolved := filepath.Clean(filepath.Join(filepath.Dir(rel), linkname))
		if resolved == ".." || strings.HasPrefix(resolved, ".."+string(os.PathSeparator)) {
			return errors.Wrapf(ErrUnsafePath, "%s -> %s", rel, linkname)
		}
	}
	linker, ok := fsys.(afero.Linker)
	if !ok {
		return errors.Errorf("filesystem cannot create symlink %s", target)
	}
	if err := mkdirParents(fsys, dest, target); err != nil {
		return err
	}
	_ = fsys.Remove(target)
	return errors.Wrapf(linker.SymlinkIfPossible(linkname, target), "failed to link %s", target)
}

// mkdirParents creates the parent directories of target, refusing to pass through a symlink.
func mkdirParents(fsys afero.Fs, dest, target string) error {
	if filepath.Clean(target) == filepath.Clean(dest) {
		return nil
	}
	rel, err := filepath.Rel(dest, filepath.Dir(target))
	if err != nil {
		return errors.Wrapf(err, "failed to resolve %s", target)
	}
	cur := dest
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		if part == "." || part == "" {
			continue
		}
		cur = filepath.Join(cur, part)
		if lst, ok := fsys.(afero.Lstater); ok {
			fi, _, err := lst.LstatIfPossible(cur)
			if err == nil && fi.Mode()&os.ModeSymlink != 0 {
				return errors.Wrapf(ErrUnsafePath, "%s passes through symlink %s", target, cur)
			}
		}
	}
	return errors.Wrapf(fsys.MkdirAll(filepath.Dir(target), 0o755), "failed to create %s", filepath.Dir(target)) //nolint:gomnd // directory mode
}

// link copies src to target. afero has no hard link primitive.
func link(fsys afero.Fs, dest, src, target string, mode os.FileMode) error {
	if lst, ok := fsys.(afero.Lstater); ok {
		if fi, _, err := lst.LstatIfPossible(src); err == nil && fi.Mode()&os.ModeSymlink != 0 {
			return errors.Wrapf(ErrUnsafePath, "hard link to symlink %s", src)
		}
	}
	in, err := fsys.Open(src)
	if err != nil {
		return errors.Wrapf(err, "failed to open link source %s", src)
	}
	defer in.Close()
	return writeFile(fsys, dest, target, in, mode)
}
