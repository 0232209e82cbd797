package textutil

import "testing"

func TestStripUnsafe(t *testing.T) {
	if got := StripUnsafe(`a<b>c:d"e|f?g*h`); got != "abcdefgh" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestSpaceHelpers(t *testing.T) {
	if got := RemoveSpaces(" Singtech  Inc "); got != "SingtechInc" {
		t.Fatalf("RemoveSpaces = %q", got)
	}
	if got := JoinSpaces("850 PO", "-"); got != "850-PO" {
		t.Fatalf("JoinSpaces = %q", got)
	}
}

func TestFolderToken(t *testing.T) {
	cases := map[string]string{
		"Singtech Inc":  "Singtech_Inc",
		" Acme/Corp ":   "AcmeCorp",
		"":              "unknown",
		"Widgets: Ltd?": "Widgets_Ltd",
	}
	for in, want := range cases {
		if got := FolderToken(in); got != want {
			t.Fatalf("FolderToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("Ticket #42"); got != "ticket__42" {
		t.Fatalf("SanitizeToken = %q", got)
	}
	if got := SanitizeToken("  "); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}
