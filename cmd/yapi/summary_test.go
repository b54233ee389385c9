package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/frederic-klein/yapi/internal/dist"
	"github.com/frederic-klein/yapi/internal/orchestrator"
	"github.com/frederic-klein/yapi/internal/promoter"
)

func TestPrintSummary(t *testing.T) {
	// Arrange
	report := &orchestrator.Report{
		Installed: []orchestrator.Result{
			{Record: &dist.Record{Identifier: "Foo-1.2.0", Target: "Foo/Foo-1.2.0-py27"}, Outcome: promoter.Installed},
			{Record: &dist.Record{Identifier: "Bim-3.4.1", Target: "Bim/Bim-3.4.1-py27"}, Outcome: promoter.Overwritten},
		},
		Skipped: []*dist.Record{{Identifier: "Bar-0.1.0"}},
		Errors:  []*orchestrator.TaskError{{Request: "git@host:g/r.git"}},
	}
	var buf bytes.Buffer

	// Act
	printSummary(&buf, report)

	// Assert
	out := buf.String()
	for _, want := range []string{"Installed 2 package(s)", "Foo-1.2.0", "Foo/Foo-1.2.0-py27", "Bim-3.4.1", "Bar-0.1.0", "git@host:g/r.git"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
