package version

import "testing"

func TestCurrentDefaults(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })

	Version, Commit = "  ", ""
	info := Current()
	if info.Version != "dev" || info.Commit != "unknown" {
		t.Fatalf("unexpected defaults: %+v", info)
	}
	if got := info.String(); got != "dev (unknown)" {
		t.Fatalf("unexpected string %q", got)
	}
}
