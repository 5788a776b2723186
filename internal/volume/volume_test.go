package volume

import "testing"

func TestParseMountinfoLine(t *testing.T) {
	line := `36 35 98:0 /mnt1 /mnt2 rw,noatime master:1 - ext3 /dev/root rw,errors=continue`
	m, ok := parseMountinfoLine(line)
	if !ok {
		t.Fatal("expected a parsed mount")
	}
	if m.Point != "/mnt2" {
		t.Errorf("Point = %q, want /mnt2", m.Point)
	}
	if m.FSType != "ext3" {
		t.Errorf("FSType = %q, want ext3", m.FSType)
	}
	if m.Source != "/dev/root" {
		t.Errorf("Source = %q, want /dev/root", m.Source)
	}
}

func TestParseMountinfoLineMalformed(t *testing.T) {
	if _, ok := parseMountinfoLine("not a mountinfo line"); ok {
		t.Fatal("expected malformed line to be rejected")
	}
}

func TestUnescapeMountinfo(t *testing.T) {
	got := unescapeMountinfo(`/mnt/My\040Volume`)
	if got != "/mnt/My Volume" {
		t.Errorf("unescapeMountinfo = %q, want '/mnt/My Volume'", got)
	}
}

func TestWithinMount(t *testing.T) {
	cases := []struct {
		path, mount string
		want        bool
	}{
		{"/a/b/c", "/a/b", true},
		{"/a/b", "/a/b", true},
		{"/a/bc", "/a/b", false},
		{"/anything", "/", true},
	}
	for _, c := range cases {
		if got := withinMount(c.path, c.mount); got != c.want {
			t.Errorf("withinMount(%q,%q) = %v, want %v", c.path, c.mount, got, c.want)
		}
	}
}

func TestHostOSVersionNonEmpty(t *testing.T) {
	if HostOSVersion() == "" {
		t.Fatal("expected a non-empty host OS version string")
	}
}
