package ledger

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"bukukas/models"
)

// Filter selects a subset of the ledger. Zero values mean "no constraint".
// TanggalLike is a substring match on the stored YYYY-MM-DD date; Start/End
// form an inclusive range and must both be set to take effect.
type Filter struct {
	TanggalLike  string
	TanggalExact string
	NamaAkun     string
	Start        string
	End          string
}

func (f Filter) isRange() bool { return f.Start != "" && f.End != "" }

// Store is the durable ledger collection, keyed by auto-assigned id.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// withTx returns a Store bound to an open transaction.
func (s *Store) withTx(tx *gorm.DB) *Store { return &Store{db: tx} }

// DB exposes the underlying handle for transaction scoping.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Insert(t *models.Transaction) error {
	if err := s.db.Create(t).Error; err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) ByID(id uint) (models.Transaction, error) {
	var t models.Transaction
	if err := s.db.First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return t, ErrNotFound
		}
		return t, fmt.Errorf("fetch transaction %d: %w", id, err)
	}
	return t, nil
}

// Latest returns the row with the maximum id. ok is false on an empty ledger.
func (s *Store) Latest() (t models.Transaction, ok bool, err error) {
	if err := s.db.Order("id desc").First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return t, false, nil
		}
		return t, false, fmt.Errorf("fetch latest transaction: %w", err)
	}
	return t, true, nil
}

// UpTo returns all rows with id <= the given id, ascending.
func (s *Store) UpTo(id uint) ([]models.Transaction, error) {
	var items []models.Transaction
	if err := s.db.Where("id <= ?", id).Order("id asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("fetch transactions up to %d: %w", id, err)
	}
	return items, nil
}

// After returns all rows with id > the given id, ascending.
func (s *Store) After(id uint) ([]models.Transaction, error) {
	var items []models.Transaction
	if err := s.db.Where("id > ?", id).Order("id asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("fetch transactions after %d: %w", id, err)
	}
	return items, nil
}

// UpdateFields writes the given non-saldo columns of one row.
func (s *Store) UpdateFields(id uint, fields map[string]any) error {
	if err := s.db.Model(&models.Transaction{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return fmt.Errorf("update transaction %d: %w", id, err)
	}
	return nil
}

func (s *Store) SetSaldo(id uint, saldo int64) error {
	if err := s.db.Model(&models.Transaction{}).Where("id = ?", id).Update("saldo", saldo).Error; err != nil {
		return fmt.Errorf("set saldo on transaction %d: %w", id, err)
	}
	return nil
}

func (s *Store) Delete(id uint) error {
	if err := s.db.Delete(&models.Transaction{}, id).Error; err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	return nil
}

// DeleteAll removes every row and reports how many were deleted.
func (s *Store) DeleteAll() (int64, error) {
	res := s.db.Where("1 = 1").Delete(&models.Transaction{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete all transactions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *Store) applyFilter(q *gorm.DB, f Filter) *gorm.DB {
	if f.TanggalLike != "" {
		q = q.Where("tanggal LIKE ?", "%"+f.TanggalLike+"%")
	}
	if f.TanggalExact != "" {
		q = q.Where("tanggal = ?", f.TanggalExact)
	}
	if f.NamaAkun != "" {
		q = q.Where("nama_akun = ?", f.NamaAkun)
	}
	if f.isRange() {
		q = q.Where("tanggal BETWEEN ? AND ?", f.Start, f.End)
	}
	return q
}

func (s *Store) Count(f Filter) (int64, error) {
	var total int64
	q := s.applyFilter(s.db.Model(&models.Transaction{}), f)
	if err := q.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return total, nil
}

// List returns matching rows, most recent (highest id) first, except for
// date-range filters which list ascending by date. limit < 0 disables
// pagination.
func (s *Store) List(f Filter, limit, offset int) ([]models.Transaction, error) {
	q := s.applyFilter(s.db.Model(&models.Transaction{}), f)
	if f.isRange() {
		q = q.Order("tanggal asc")
	} else {
		q = q.Order("id desc")
	}
	if limit >= 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var items []models.Transaction
	if err := q.Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return items, nil
}
