package ledger

import (
	"regexp"

	"bukukas/models"
)

var (
	displayDateRE = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`) // DD-MM-YYYY
	storedDateRE  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`) // YYYY-MM-DD
	shortTimeRE   = regexp.MustCompile(`^\d{2}:\d{2}$`)
	fullTimeRE    = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}$`)
)

// NormalizeDate converts DD-MM-YYYY input into the stored YYYY-MM-DD form.
// Anything that does not match DD-MM-YYYY passes through unchanged; callers
// must tolerate that.
func NormalizeDate(s string) string {
	if displayDateRE.MatchString(s) {
		return s[6:10] + "-" + s[3:5] + "-" + s[0:2]
	}
	return s
}

// DisplayDate converts a stored YYYY-MM-DD date back into DD-MM-YYYY for
// responses. Non-matching input passes through unchanged.
func DisplayDate(s string) string {
	if storedDateRE.MatchString(s) {
		return s[8:10] + "-" + s[5:7] + "-" + s[0:4]
	}
	return s
}

// NormalizeTime pads HH:MM input to HH:MM:SS. Full HH:MM:SS and anything
// unrecognized pass through unchanged.
func NormalizeTime(s string) string {
	if shortTimeRE.MatchString(s) {
		return s + ":00"
	}
	return s
}

// DisplayTime keeps times in HH:MM:SS form for responses.
func DisplayTime(s string) string {
	if fullTimeRE.MatchString(s) {
		return s
	}
	return NormalizeTime(s)
}

// Display returns a copy of t with tanggal and waktu reformatted for API
// responses, independent of the stored representation.
func Display(t models.Transaction) models.Transaction {
	t.Tanggal = DisplayDate(t.Tanggal)
	if t.Waktu != "" {
		t.Waktu = DisplayTime(t.Waktu)
	}
	return t
}

// DisplayAll formats a slice of rows for API responses.
func DisplayAll(items []models.Transaction) []models.Transaction {
	out := make([]models.Transaction, len(items))
	for i, t := range items {
		out[i] = Display(t)
	}
	return out
}
