package definition

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/errors"
)

var python27 = dist.Python{
	Identifier:  "2.7",
	Request:     "python >= 2.7, < 2.8",
	LibraryPath: "lib/python2.7/site-packages",
}

func fooRecord() *dist.Record {
	return &dist.Record{
		Identifier:   "Foo-1.2.0",
		Key:          "foo",
		Name:         "Foo",
		ModuleName:   "foo",
		Version:      "1.2.0",
		Request:      "foo",
		Description:  "A foo package.",
		Requirements: []string{"bim >= 3.4, < 5"},
		Python:       python27,
		Target:       "Foo/Foo-1.2.0-py27",
	}
}

func centos7() *dist.System {
	return &dist.System{Platform: "linux", Arch: "x86_64", OS: dist.OS{Name: "centos", MajorVersion: 7}}
}

// installTree creates dirs and files (path -> content) under a fresh root.
func installTree(t *testing.T, dirs []string, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, filepath.FromSlash(d)), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestSynthesize_Create(t *testing.T) {
	tests := []struct {
		name        string
		dirs        []string
		system      *dist.System
		command     map[string]string
		wantEnviron map[string]string
		wantSystem  *System
	}{
		{
			name: "empty tree",
		},
		{
			name: "site-packages only",
			dirs: []string{"lib/python2.7/site-packages/foo"},
			wantEnviron: map[string]string{
				"PYTHONPATH": "${INSTALL_LOCATION}/lib/python2.7/site-packages:${PYTHONPATH}",
			},
		},
		{
			name:    "site-packages and bin with commands",
			dirs:    []string{"lib/python2.7/site-packages", "bin"},
			command: map[string]string{"foo": "python -m foo"},
			wantEnviron: map[string]string{
				"PYTHONPATH": "${INSTALL_LOCATION}/lib/python2.7/site-packages:${PYTHONPATH}",
				"PATH":       "${INSTALL_LOCATION}/bin:${PATH}",
			},
		},
		{
			name:       "tied to an OS",
			system:     centos7(),
			wantSystem: &System{Platform: "linux", Arch: "x86_64", OS: "centos >= 7, < 8"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			record := fooRecord()
			record.System = tt.system
			record.Command = tt.command
			dir := installTree(t, tt.dirs, nil)

			// Act
			d, err := NewSynthesizer("").Synthesize(record, dir)

			// Assert
			if err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			if d.Identifier != "foo" || d.Version != "1.2.0" || d.Description != "A foo package." {
				t.Errorf("header = %q %q %q", d.Identifier, d.Version, d.Description)
			}
			if !reflect.DeepEqual(d.Requirements, record.Requirements) {
				t.Errorf("Requirements = %v, want %v", d.Requirements, record.Requirements)
			}
			if !reflect.DeepEqual(d.Environ, tt.wantEnviron) {
				t.Errorf("Environ = %v, want %v", d.Environ, tt.wantEnviron)
			}
			if !reflect.DeepEqual(d.System, tt.wantSystem) {
				t.Errorf("System = %+v, want %+v", d.System, tt.wantSystem)
			}
			if !reflect.DeepEqual(d.Command, tt.command) {
				t.Errorf("Command = %v, want %v", d.Command, tt.command)
			}
			if d.InstallLocation != InstallLocation {
				t.Errorf("InstallLocation = %q", d.InstallLocation)
			}
		})
	}
}

func TestSynthesize_CreateWithoutRequirements(t *testing.T) {
	record := fooRecord()
	record.Requirements = nil

	d, err := NewSynthesizer("").Synthesize(record, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"requirements":[]`) {
		t.Errorf("Marshal() = %s, want an empty requirements list", data)
	}
}

func TestSynthesize_InstallRoot(t *testing.T) {
	d, err := NewSynthesizer("/deploy/python").Synthesize(fooRecord(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if d.InstallLocation != "/deploy/python/Foo/Foo-1.2.0-py27" {
		t.Errorf("InstallLocation = %q", d.InstallLocation)
	}
}

func TestSynthesize_Retrieve(t *testing.T) {
	tests := []struct {
		name       string
		shipped    string
		system     *dist.System
		wantSystem *System
	}{
		{
			name:       "shipped system is kept",
			shipped:    `{"identifier": "foo-lib", "system": {"platform": "linux"}, "requirements": ["old"], "variants": [{"identifier": "v1"}]}`,
			system:     centos7(),
			wantSystem: &System{Platform: "linux"},
		},
		{
			name:       "missing system comes from the record",
			shipped:    `{"identifier": "foo-lib", "requirements": ["old"], "variants": [{"identifier": "v1"}]}`,
			system:     centos7(),
			wantSystem: &System{Platform: "linux", Arch: "x86_64", OS: "centos >= 7, < 8"},
		},
		{
			name:    "OS independent",
			shipped: `{"identifier": "foo-lib", "variants": [{"identifier": "v1"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			record := fooRecord()
			record.System = tt.system
			dir := installTree(t, []string{"bin"}, map[string]string{"share/wiz/foo/wiz.json": tt.shipped})

			// Act
			d, err := NewSynthesizer("").Synthesize(record, dir)

			// Assert
			if err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			if d.Identifier != "foo-lib" {
				t.Errorf("Identifier = %q, want the shipped one", d.Identifier)
			}
			if !reflect.DeepEqual(d.Requirements, record.Requirements) {
				t.Errorf("Requirements = %v, want %v", d.Requirements, record.Requirements)
			}
			if !reflect.DeepEqual(d.System, tt.wantSystem) {
				t.Errorf("System = %+v, want %+v", d.System, tt.wantSystem)
			}
			if d.Environ != nil {
				t.Errorf("Environ = %v, want the shipped (empty) environ", d.Environ)
			}
			if _, ok := d.Extra["variants"]; !ok {
				t.Errorf("Extra = %v, want variants preserved", d.Extra)
			}
		})
	}
}

func TestSynthesize_RetrieveInvalid(t *testing.T) {
	dir := installTree(t, nil, map[string]string{"share/wiz/foo/wiz.json": "{not json"})

	_, err := NewSynthesizer("").Synthesize(fooRecord(), dir)

	if !errors.Is(err, errors.ErrCodeDefinition) {
		t.Errorf("Synthesize() error = %v, want %s", err, errors.ErrCodeDefinition)
	}
}

func TestDefinition_MarshalOrder(t *testing.T) {
	// Arrange
	var d Definition
	input := `{"zeta": 1, "identifier": "foo", "alpha": {"b": true}, "requirements": ["bim"]}`
	if err := json.Unmarshal([]byte(input), &d); err != nil {
		t.Fatal(err)
	}

	// Act
	data, err := json.Marshal(d)

	// Assert
	if err != nil {
		t.Fatal(err)
	}
	want := `{"identifier":"foo","requirements":["bim"],"alpha":{"b":true},"zeta":1}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestWriter_Write(t *testing.T) {
	// Arrange
	dir := filepath.Join(t.TempDir(), "definitions")
	d, err := NewSynthesizer("").Synthesize(fooRecord(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	// Act
	path, err := NewWriter(dir).Write(d, python27)

	// Assert
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if filepath.Dir(path) != dir || !strings.HasPrefix(filepath.Base(path), "foo-1.2.0-") {
		t.Errorf("path = %s", path)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got.Requirements, []string{"bim >= 3.4, < 5"}) {
		t.Errorf("Requirements = %v", got.Requirements)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestFileName_Variants(t *testing.T) {
	base := &Definition{Identifier: "foo", Version: "1.2.0"}
	tied := &Definition{Identifier: "foo", Version: "1.2.0", System: &System{OS: "centos >= 7, < 8"}}
	python3 := dist.Python{Identifier: "3.9", Request: "python >= 3.9, < 3.10"}

	names := map[string]bool{
		FileName(base, python27): true,
		FileName(tied, python27): true,
		FileName(base, python3):  true,
	}
	if len(names) != 3 {
		t.Errorf("FileName() collided: %v", names)
	}
	if FileName(base, python27) != FileName(&Definition{Identifier: "foo", Version: "1.2.0"}, python27) {
		t.Error("FileName() is not deterministic")
	}
}
