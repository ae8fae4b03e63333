package emit

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteOutput writes a target's artifact set under dir. Each file is
// written to a temporary file in its final directory and renamed into
// place, so a failed run never leaves a half-written binding for a
// consumer to import. Files are written in sorted path order.
func WriteOutput(dir string, out *Output) error {
	out.sortFiles()
	root := filepath.Join(dir, out.Target)
	for _, f := range out.Files {
		dst := filepath.Join(root, filepath.FromSlash(f.Path))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("creating output directory for %s: %w", f.Path, err)
		}
		if err := atomicWrite(dst, f.Content); err != nil {
			return fmt.Errorf("writing %s/%s: %w", out.Target, f.Path, err)
		}
	}
	return nil
}

func atomicWrite(dst string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
