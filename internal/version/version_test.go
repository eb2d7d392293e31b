package version

import (
	"strings"
	"testing"
)

func TestLines(t *testing.T) {
	defer func(v, c string) { Version, GitCommit = v, c }(Version, GitCommit)
	Version, GitCommit = "1.2.3", ""

	lines := Lines()
	if len(lines) != 5 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasSuffix(lines[0], "1.2.3") {
		t.Errorf("version line = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "n/a") {
		t.Errorf("commit line = %q", lines[1])
	}
}
