package watermark

import (
	"fmt"
	"io"

	"github.com/google/renameio/v2"
)

// writeFileAtomic writes to a pending file next to path and renames it into
// place once write succeeds. On failure nothing is left behind and an
// existing file at path is untouched.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	f, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer f.Cleanup()

	if err := write(f); err != nil {
		return err
	}
	if err := f.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}
