package models

// Transaction is a single ledger row. Saldo is derived, never user-settable:
// it equals the running total of pemasukan minus pengeluaran over all rows
// with id <= this row's id, in ascending id order.
//
// Tanggal is kept as a fixed YYYY-MM-DD string so substring filters (LIKE)
// and inclusive BETWEEN ranges behave the same on every backend.
type Transaction struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Tanggal     string `gorm:"size:10;index;not null" json:"tanggal"`
	Waktu       string `gorm:"size:8" json:"waktu"` // HH:MM:SS, optional
	NamaAkun    string `gorm:"size:255;index" json:"nama_akun"`
	Pemasukan   int64  `gorm:"not null;default:0" json:"pemasukan"`
	Pengeluaran int64  `gorm:"not null;default:0" json:"pengeluaran"`
	Saldo       int64  `gorm:"not null" json:"saldo"`
	Keterangan  string `gorm:"size:512" json:"keterangan"`
}
