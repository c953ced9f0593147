// Package csvio maps ledger transactions to and from the flat CSV shape used
// for bulk export and import.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"bukukas/models"
	"bukukas/pkg/ledger"
)

// Columns is the fixed export column order.
var Columns = []string{"id", "tanggal", "waktu", "nama_akun", "pemasukan", "pengeluaran", "saldo", "keterangan"}

// Row is one imported CSV line after coercion. Saldo is carried for shape
// compatibility but the ledger recomputes it on insert.
type Row struct {
	Tanggal     string
	Waktu       string
	NamaAkun    string
	Pemasukan   int64
	Pengeluaran int64
	Saldo       int64
	Keterangan  string
}

// Write serializes transactions in the fixed column order, with tanggal and
// waktu reformatted for display.
func Write(w io.Writer, items []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range items {
		rec := []string{
			strconv.FormatUint(uint64(t.ID), 10),
			ledger.DisplayDate(t.Tanggal),
			ledger.DisplayTime(t.Waktu),
			t.NamaAkun,
			strconv.FormatInt(t.Pemasukan, 10),
			strconv.FormatInt(t.Pengeluaran, 10),
			strconv.FormatInt(t.Saldo, 10),
			t.Keterangan,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses a header-keyed CSV stream. Dates are normalized to the stored
// form and amount fields are coerced to integers, defaulting to 0 when they
// do not parse.
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		rows = append(rows, Row{
			Tanggal:     ledger.NormalizeDate(field(rec, "tanggal")),
			Waktu:       ledger.NormalizeTime(field(rec, "waktu")),
			NamaAkun:    field(rec, "nama_akun"),
			Pemasukan:   coerceInt(field(rec, "pemasukan")),
			Pengeluaran: coerceInt(field(rec, "pengeluaran")),
			Saldo:       coerceInt(field(rec, "saldo")),
			Keterangan:  field(rec, "keterangan"),
		})
	}
	return rows, nil
}

func coerceInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// Transaction converts an imported row into a model ready for Create.
func (r Row) Transaction() models.Transaction {
	return models.Transaction{
		Tanggal:     r.Tanggal,
		Waktu:       r.Waktu,
		NamaAkun:    r.NamaAkun,
		Pemasukan:   r.Pemasukan,
		Pengeluaran: r.Pengeluaran,
		Keterangan:  r.Keterangan,
	}
}
