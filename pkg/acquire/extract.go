package acquire

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"
	"github.com/spf13/afero"
)

// extract unpacks archive into destDir. For KindCore the single top-level
// directory shared by every entry is stripped.
func (a *Acquirer) extract(ctx context.Context, archive afero.File, name string, kind Kind, destDir string) error {
	format, _, err := archives.Identify(ctx, name, archive)
	if err != nil {
		return fmt.Errorf("identify archive %s: %w", name, err)
	}
	extractor, ok := format.(archives.Extractor)
	if !ok {
		return fmt.Errorf("archive format %s cannot be extracted", format.Extension())
	}
	// Identify consumed part of the stream; zip needs the whole file
	if _, err := archive.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind archive: %w", err)
	}

	dest := filepath.Clean(destDir)
	if err := a.fs.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dest, err)
	}

	strip := &topLevel{enabled: kind == KindCore}
	entries := 0

	err = extractor.Extract(ctx, archive, func(ctx context.Context, f archives.FileInfo) error {
		rel, err := strip.relative(f.NameInArchive, f.IsDir())
		if err != nil {
			return err
		}
		if rel == "" {
			return nil
		}

		target, err := safeJoin(dest, rel)
		if err != nil {
			return err
		}
		entries++

		switch {
		case f.IsDir():
			if err := a.fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", rel, err)
			}
			return nil
		case f.LinkTarget != "" || f.Mode()&os.ModeSymlink != 0:
			a.logger.Debug().Str("entry", f.NameInArchive).Msg("Skipping link entry")
			return nil
		}

		if err := a.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("create directory for %s: %w", rel, err)
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", rel, err)
		}
		defer rc.Close()
		return a.writeFile(target, rc, f.Mode().Perm())
	})
	if err != nil {
		return err
	}

	if strip.enabled && strip.root == "" {
		return fmt.Errorf("archive %s has no top-level directory", name)
	}
	a.logger.Debug().Str("archive", name).Int("entries", entries).Str("dest", dest).Msg("Extracted archive")
	return nil
}

// topLevel tracks the single root directory of a core archive
type topLevel struct {
	enabled bool
	root    string
}

// relative returns the entry path to write, with the top-level directory
// removed when stripping. An empty result means the entry is skipped.
func (t *topLevel) relative(name string, isDir bool) (string, error) {
	name = strings.TrimPrefix(path.Clean(strings.ReplaceAll(name, "\\", "/")), "./")
	if name == "." || name == "" {
		return "", nil
	}
	if strings.HasPrefix(name, "/") || name == ".." || strings.HasPrefix(name, "../") {
		return "", fmt.Errorf("invalid entry path in archive: %s", name)
	}
	if !t.enabled {
		return name, nil
	}

	first, rest, hasRest := strings.Cut(name, "/")
	if !hasRest && !isDir {
		return "", fmt.Errorf("archive entry %s is outside a top-level directory", name)
	}
	if t.root == "" {
		t.root = first
	} else if first != t.root {
		return "", fmt.Errorf("archive has more than one top-level directory: %s and %s", t.root, first)
	}
	return rest, nil
}

// safeJoin resolves rel under dest, rejecting absolute and escaping paths
func safeJoin(dest, rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || strings.HasPrefix(rel, "/") || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("invalid entry path in archive: %s", rel)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", rel)
	}
	target := filepath.Join(dest, clean)
	if target != dest && !strings.HasPrefix(target, dest+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry escapes destination: %s", rel)
	}
	return target, nil
}

func (a *Acquirer) writeFile(dst string, r io.Reader, mode os.FileMode) error {
	if mode == 0 {
		mode = 0o644
	}
	f, err := a.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", dst, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write file %s: %w", dst, err)
	}
	return nil
}
