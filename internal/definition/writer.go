package definition

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/errors"
)

// Writer stores definitions in a directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer for dir. The directory is created on first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// FileName returns "<identifier>-<version>-<hash>.json". The hash covers the
// system and interpreter so variants of one package do not collide.
func FileName(d *Definition, python dist.Python) string {
	data, _ := json.Marshal([]any{d.Identifier, d.Version, d.System, python.Request})
	sum := sha256.Sum256(data)
	name := dist.Sanitize(d.Identifier)
	if d.Version != "" {
		name += "-" + dist.Sanitize(d.Version)
	}
	return fmt.Sprintf("%s-%s.json", name, hex.EncodeToString(sum[:])[:8])
}

// Write stores d and returns the path written.
func (w *Writer) Write(d *Definition, python dist.Python) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeDefinition, err, "creating %s", w.dir)
	}
	data, err := json.MarshalIndent(d, "", "    ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDefinition, err, "encoding definition %s", d.Identifier)
	}
	data = append(data, '\n')

	dest := filepath.Join(w.dir, FileName(d, python))
	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return "", errors.Wrap(errors.ErrCodeDefinition, err, "writing %s", tmp)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", errors.Wrap(errors.ErrCodeDefinition, err, "renaming %s", tmp)
	}
	return dest, nil
}
