package installer

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/yapi/internal/extractor"
	"github.com/frederic-klein/yapi/internal/interpreter"
	"github.com/frederic-klein/yapi/internal/subprocess"
	"github.com/frederic-klein/yapi/internal/system"
)

// fooWheel lists the files of a small pure-Python wheel.
var fooWheel = map[string]string{
	"foo/__init__.py": "",
	"foo/__main__.py": "def main():\n    pass\n",
	"foo/dev.py":      "def main():\n    pass\n",
	"foo-1.2.0.dist-info/METADATA": strings.Join([]string{
		"Metadata-Version: 2.1",
		"Name: Foo",
		"Version: 1.2.0",
		"Summary: Foo toolkit",
		"Classifier: Operating System :: OS Independent",
		"Provides-Extra: dev",
		"Provides-Extra: test",
		"Requires-Dist: bim (<5,>=3.4)",
		"Requires-Dist: baz[fast] ; extra == 'dev'",
		"Requires-Dist: pytest>=6 ; extra == \"test\"",
		"Requires-Dist: never ; python_version < \"2\"",
		"",
	}, "\n"),
	"foo-1.2.0.dist-info/WHEEL":            "Wheel-Version: 1.0\nGenerator: yapi-test\nRoot-Is-Purelib: true\nTag: py3-none-any\n",
	"foo-1.2.0.dist-info/top_level.txt":    "foo\n",
	"foo-1.2.0.dist-info/entry_points.txt": "[console_scripts]\nfoo = foo.__main__:main\nfoo-dev = foo.dev:main [dev]\n",
}

// requirePip returns the path of a python3 interpreter able to run pip, or
// skips the test.
func requirePip(t *testing.T) string {
	t.Helper()
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not found")
	}
	if err := exec.Command(python, "-m", "pip", "--version").Run(); err != nil {
		t.Skip("pip not available for python3")
	}
	return python
}

func buildWheel(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "foo-1.2.0-py3-none-any.whl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	var record strings.Builder
	for name, content := range fooWheel {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, content); err != nil {
			t.Fatal(err)
		}
		record.WriteString(name + ",,\n")
	}
	record.WriteString("foo-1.2.0.dist-info/RECORD,,\n")
	w, err := zw.Create("foo-1.2.0.dist-info/RECORD")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := io.WriteString(w, record.String()); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

// installFoo installs the wheel under a fresh prefix and returns the
// directory holding its dist-info.
func installFoo(t *testing.T, python string) string {
	t.Helper()
	dir := t.TempDir()
	prefix := filepath.Join(dir, "prefix")
	wheel := buildWheel(t, dir)

	cmd := exec.Command(python, "-m", "pip", "install",
		"--no-deps", "--no-index", "--no-cache-dir", "--disable-pip-version-check",
		"--prefix", prefix, wheel)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Skipf("pip cannot install wheels here: %v\n%s", err, out)
	}

	var site string
	filepath.WalkDir(prefix, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && d.Name() == "foo-1.2.0.dist-info" {
			site = filepath.Dir(path)
			return fs.SkipAll
		}
		return nil
	})
	if site == "" {
		t.Fatalf("foo-1.2.0.dist-info not found under %s", prefix)
	}
	return site
}

func scriptEnviron(pythonPath string) map[string]string {
	return map[string]string{
		"PATH":           os.Getenv("PATH"),
		"PYTHONPATH":     pythonPath,
		"PYTHONWARNINGS": "ignore:DEPRECATION",
	}
}

func TestPackageInfoScript(t *testing.T) {
	python := requirePip(t)
	site := installFoo(t, python)
	logger := log.New(io.Discard)
	inst := New(subprocess.NewDriver(logger), nil, system.Fixed(centos7), logger)
	ctx := &interpreter.Context{Environ: scriptEnviron(site), Command: python}

	tests := []struct {
		argument string
		want     []string
	}{
		{"Foo", []string{"bim >= 3.4, < 5"}},
		{"Foo[dev,test]", []string{"bim >= 3.4, < 5", "baz[fast]", "pytest >= 6"}},
		{"Foo[dev]", []string{"bim >= 3.4, < 5", "baz[fast]"}},
	}

	for _, tt := range tests {
		t.Run(tt.argument, func(t *testing.T) {
			// Act
			meta, err := inst.queryMetadata(ctx, tt.argument)

			// Assert
			if err != nil {
				t.Fatalf("queryMetadata() error = %v", err)
			}
			want := extractor.PackageInfo{Key: "foo", Name: "Foo", ModuleName: "foo", Version: "1.2.0"}
			if meta.Package != want {
				t.Errorf("Package = %+v, want %+v", meta.Package, want)
			}
			if !reflect.DeepEqual(meta.Requirements, tt.want) {
				t.Errorf("Requirements = %q, want %q", meta.Requirements, tt.want)
			}
		})
	}
}

func TestPackageInfoScript_PkgResources(t *testing.T) {
	// Arrange: hide importlib.metadata so the pkg_resources path runs, and
	// shadow pkg_resources with a module that warns on import the way
	// setuptools >= 67.5 does.
	python := requirePip(t)
	if err := exec.Command(python, "-W", "ignore", "-c", "import pip._vendor.pkg_resources").Run(); err != nil {
		t.Skip("pip does not vendor pkg_resources")
	}
	site := installFoo(t, python)

	shim := t.TempDir()
	shimSource := strings.Join([]string{
		"import warnings",
		"warnings.warn('pkg_resources is deprecated as an API', DeprecationWarning, stacklevel=2)",
		"from pip._vendor.pkg_resources import *",
		"from pip._vendor.pkg_resources import Requirement, UnknownExtra, get_distribution",
		"",
	}, "\n")
	if err := os.WriteFile(filepath.Join(shim, "pkg_resources.py"), []byte(shimSource), 0o644); err != nil {
		t.Fatal(err)
	}

	script := "import importlib, sys\nsys.modules['importlib.metadata'] = None\nvars(importlib).pop('metadata', None)\n" + packageInfoScript
	environ := scriptEnviron(shim + string(os.PathListSeparator) + site)
	driver := subprocess.NewDriver(log.New(io.Discard))

	// Act
	out, err := driver.Run([]string{python, "-c", script, "Foo[dev,test]"}, environ, subprocess.Quiet)

	// Assert
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	meta, err := extractor.ParseMetadata([]byte(out))
	if err != nil {
		t.Fatal(err)
	}
	if meta.Package.Key != "foo" || meta.Package.ModuleName != "foo" || meta.Package.Version != "1.2.0" {
		t.Errorf("Package = %+v", meta.Package)
	}
	want := []string{"bim >= 3.4, < 5", "baz[fast]", "pytest >= 6"}
	if !reflect.DeepEqual(meta.Requirements, want) {
		t.Errorf("Requirements = %q, want %q", meta.Requirements, want)
	}
}
