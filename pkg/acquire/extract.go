package acquire

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	errs "github.com/matzehuels/craftlaunch/pkg/errors"
)

// Extract unpacks the zip archive at archive into dir. Entries whose name
// starts with one of the exclude prefixes are skipped; so are entries that
// would land outside dir. Directories are recreated and files overwritten.
func Extract(archive, dir string, exclude []string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if excluded(f.Name, exclude) || errs.ValidateRelativePath(f.Name) != nil {
			continue
		}
		out := filepath.Join(dir, filepath.FromSlash(f.Name))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractFile(f, out); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, out string) error {
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	w, err := os.OpenFile(out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, rc); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func excluded(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Mirror copies the object at src to root/<virtualPath> unless that file
// already exists.
func Mirror(src, root, virtualPath string) error {
	if err := errs.ValidateRelativePath(virtualPath); err != nil {
		return err
	}
	dest := filepath.Join(root, filepath.FromSlash(virtualPath))
	if _, err := os.Stat(dest); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".mirror-*")
	if err != nil {
		return err
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
