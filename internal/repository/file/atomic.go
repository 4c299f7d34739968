package file

import (
	"os"
	"path/filepath"
	"runtime"
)

// writeFileAtomic replaces dir/name with data: it writes a temp file in the
// same directory, syncs it, then renames it over the target. Readers see
// either the old archive or the new one, never a partial write.
func writeFileAtomic(dir, name string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// The temp file must live next to the target for rename to be atomic.
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, filepath.Join(dir, name)); err != nil {
		return err
	}

	syncDir(dir)
	return nil
}

// syncDir fsyncs the directory entry after a rename. Best-effort: not every
// platform supports it.
func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
