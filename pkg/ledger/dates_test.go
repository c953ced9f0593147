package ledger

import "testing"

func TestNormalizeDateConvertsDisplayForm(t *testing.T) {
	if got := NormalizeDate("31-12-2024"); got != "2024-12-31" {
		t.Fatalf("expected 2024-12-31 got %q", got)
	}
}

func TestNormalizeDatePassesThroughOtherShapes(t *testing.T) {
	for _, s := range []string{"2024-12-31", "31/12/2024", "31-12-24", "", "besok"} {
		if got := NormalizeDate(s); got != s {
			t.Fatalf("expected %q unchanged, got %q", s, got)
		}
	}
}

func TestDisplayDateRoundTrip(t *testing.T) {
	if got := DisplayDate("2024-12-31"); got != "31-12-2024" {
		t.Fatalf("expected 31-12-2024 got %q", got)
	}
	if got := DisplayDate(NormalizeDate("05-01-2024")); got != "05-01-2024" {
		t.Fatalf("round trip broke: got %q", got)
	}
	if got := DisplayDate("not-a-date"); got != "not-a-date" {
		t.Fatalf("expected pass-through, got %q", got)
	}
}

func TestNormalizeTime(t *testing.T) {
	if got := NormalizeTime("07:05"); got != "07:05:00" {
		t.Fatalf("expected 07:05:00 got %q", got)
	}
	if got := NormalizeTime("07:05:30"); got != "07:05:30" {
		t.Fatalf("expected 07:05:30 got %q", got)
	}
	if got := NormalizeTime("7.05"); got != "7.05" {
		t.Fatalf("expected pass-through got %q", got)
	}
}
