package halconfig

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"github.com/opmodel/hal/internal/output"
	"github.com/opmodel/hal/internal/secrets"
)

// StagedFile is a local file copied into the staging directory.
type StagedFile struct {
	Source string
	Path   string
}

// StageLocalFiles snapshots every local file referenced under root into dir
// and points the referencing fields at the copies, so later reads see the
// file as it was when the config was edited. Staged names are
// "<crc32 of source path>-<base name>"; restaging the same path overwrites
// the previous copy. Fields already pointing into dir are left alone.
func StageLocalFiles(root Node, dir string) ([]StagedFile, error) {
	if len(CollectLocalFiles(root)) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	copied := make(map[string]string)
	var (
		staged []StagedFile
		err    error
	)
	Walk(root, func(n Node) {
		if err != nil {
			return
		}
		for _, f := range Fields(n) {
			src := f.String()
			if !f.Tags.LocalFile || src == "" || secrets.IsReference(src) || filepath.Dir(src) == filepath.Clean(dir) {
				continue
			}
			dst, ok := copied[src]
			if !ok {
				dst = filepath.Join(dir, StagedName(src))
				if err = copyFile(src, dst); err != nil {
					err = fmt.Errorf("staging %s: %w", src, err)
					return
				}
				copied[src] = dst
				output.Debug("staged local file", "source", src, "path", dst)
				staged = append(staged, StagedFile{Source: src, Path: dst})
			}
			f.SetString(dst)
		}
	})
	return staged, err
}

// StagedName returns the staging file name for a source path.
func StagedName(src string) string {
	return fmt.Sprintf("%08x-%s", crc32.ChecksumIEEE([]byte(src)), filepath.Base(src))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
