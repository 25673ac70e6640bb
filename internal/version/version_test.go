package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	origCommit := Commit
	t.Cleanup(func() { Commit = origCommit })

	Commit = "unknown"
	if got := Info(); got != Version {
		t.Errorf("Info() = %s, want bare version without a commit", got)
	}

	Commit = "0123456789abcdef"
	if got := Info(); got != Version+" (0123456)" {
		t.Errorf("Info() = %s, want abbreviated commit", got)
	}
}

func TestFull(t *testing.T) {
	full := Full()
	for _, want := range []string{"attrib version " + Version, "commit:", "built:"} {
		if !strings.Contains(full, want) {
			t.Errorf("Full() missing %q:\n%s", want, full)
		}
	}
}
