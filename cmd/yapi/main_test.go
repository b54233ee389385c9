package main

import (
	"os"
	"testing"
)

func TestInteractive_NonTerminalStdin(t *testing.T) {
	pipeReader, pipeWriter, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer pipeReader.Close()
	defer pipeWriter.Close()

	tests := []struct {
		name  string
		stdin func(t *testing.T) *os.File
	}{
		{"pipe", func(t *testing.T) *os.File { return pipeReader }},
		{"regular file", func(t *testing.T) *os.File {
			f, err := os.CreateTemp(t.TempDir(), "stdin")
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { f.Close() })
			return f
		}},
		// A character device that is not a terminal.
		{"null device", func(t *testing.T) *os.File {
			f, err := os.Open(os.DevNull)
			if err != nil {
				t.Skipf("cannot open %s: %v", os.DevNull, err)
			}
			t.Cleanup(func() { f.Close() })
			return f
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			saved := os.Stdin
			os.Stdin = tt.stdin(t)
			t.Cleanup(func() { os.Stdin = saved })

			// Act
			got := interactive()

			// Assert
			if got {
				t.Errorf("interactive() = true for %s stdin", tt.name)
			}
		})
	}
}
