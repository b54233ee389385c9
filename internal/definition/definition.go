// Package definition builds and writes the environment definitions consumed
// by the wiz environment manager, one per installed package.
package definition

import (
	"bytes"
	"encoding/json"
	"os"
	"sort"

	"github.com/frederic-klein/yapi/internal/errors"
)

// InstallLocation is the placeholder the manager substitutes with the
// directory a package was installed to.
const InstallLocation = "${INSTALL_LOCATION}"

// System restricts a definition to compatible hosts.
type System struct {
	Platform string `json:"platform,omitempty"`
	Arch     string `json:"arch,omitempty"`
	OS       string `json:"os,omitempty"` // e.g., "centos >= 7, < 8"
}

// Definition is a wiz definition. Keys outside the known schema are kept in
// Extra so that shipped definitions survive a rewrite.
type Definition struct {
	Identifier      string            `json:"identifier"`
	Version         string            `json:"version,omitempty"`
	Description     string            `json:"description,omitempty"`
	System          *System           `json:"system,omitempty"`
	Command         map[string]string `json:"command,omitempty"`
	Environ         map[string]string `json:"environ,omitempty"`
	Requirements    []string          `json:"requirements"`
	InstallLocation string            `json:"install-location,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var knownKeys = []string{
	"identifier", "version", "description", "system",
	"command", "environ", "requirements", "install-location",
}

type plain Definition

// MarshalJSON writes the known keys first, then extra keys in sorted order.
func (d Definition) MarshalJSON() ([]byte, error) {
	if d.Requirements == nil {
		d.Requirements = []string{}
	}
	known, err := json.Marshal(plain(d))
	if err != nil || len(d.Extra) == 0 {
		return known, err
	}

	keys := make([]string, 0, len(d.Extra))
	for k := range d.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(known[:len(known)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(d.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a definition, keeping unknown keys in Extra.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range knownKeys {
		delete(all, k)
	}
	p.Extra = nil
	if len(all) > 0 {
		p.Extra = all
	}
	*d = Definition(p)
	return nil
}

// Load reads the definition stored at path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDefinition, err, "reading definition")
	}
	var d Definition
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDefinition, err, "parsing definition %s", path)
	}
	return &d, nil
}
