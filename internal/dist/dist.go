package dist

// Platform names reported by the system probe.
const (
	PlatformLinux   = "linux"
	PlatformMac     = "mac"
	PlatformWindows = "windows"
)

// OS describes the operating system a package is tied to.
type OS struct {
	Name         string `json:"name"`          // e.g., "centos"
	MajorVersion int    `json:"major_version"` // e.g., 7
}

// System describes the host a package was installed on.
type System struct {
	Platform string `json:"platform"` // "linux", "mac" or "windows"
	Arch     string `json:"arch"`     // e.g., "x86_64"
	OS       OS     `json:"os"`
}

// Python describes the interpreter packages are installed for.
type Python struct {
	Identifier  string `json:"identifier"`   // e.g., "2.7"
	Request     string `json:"request"`      // e.g., "python >= 2.7, < 2.8"
	LibraryPath string `json:"library-path"` // e.g., "lib/python2.7/site-packages"
}

// Record is the canonical description of one package installed during a run.
// Records are built once by the installer and never mutated afterwards.
type Record struct {
	Identifier   string            // e.g., "Foo-dev-test-1.2.0"
	Key          string            // e.g., "foo-dev-test"
	Name         string            // e.g., "Foo"
	ModuleName   string            // e.g., "foo"
	Version      string            // e.g., "1.2.0"
	Request      string            // requirement string that produced the record
	Extras       []string          // sorted, de-duplicated
	Description  string            // optional
	Location     string            // optional
	System       *System           // nil unless the package is tied to an OS
	Command      map[string]string // alias -> "python -m <module>"
	Requirements []string          // child requests
	Python       Python
	Target       string // relative path under the output root
}

// Label returns the identifier to use in logs for an optional parent record.
func Label(r *Record) string {
	if r == nil {
		return ""
	}
	return r.Identifier
}
