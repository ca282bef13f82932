package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	old := Version
	Version = "v9.9.9"
	t.Cleanup(func() { Version = old })

	s := String()
	if !strings.HasPrefix(s, "datpeek v9.9.9 ") {
		t.Errorf("unexpected banner %q", s)
	}
	if v, _, _ := Info(); v != "v9.9.9" {
		t.Errorf("Info() version = %q", v)
	}
}
