package ledger

import (
	"sync"

	"gorm.io/gorm"

	"bukukas/models"
)

// Service owns every mutation of the ledger so the derived saldo column stays
// consistent: for each row, saldo equals the sum of pemasukan-pengeluaran over
// all rows with a smaller or equal id.
//
// Each mutation is a multi-step read-modify-write sequence. The mutex
// serializes those sequences and the surrounding GORM transaction makes each
// one atomic, so an interleaved or half-applied sequence can never leave the
// running balance broken.
type Service struct {
	mu    sync.Mutex
	store *Store
}

func NewService(store *Store) *Service { return &Service{store: store} }

// Store exposes read-only access for listings and exports.
func (s *Service) Store() *Store { return s.store }

// Patch is a partial update. Nil means "field omitted, keep the stored
// value"; a non-nil pointer applies, including explicit zeroes.
type Patch struct {
	Tanggal     *string
	Waktu       *string
	NamaAkun    *string
	Pemasukan   *int64
	Pengeluaran *int64
	Keterangan  *string
}

// Create stores a new transaction. Saldo is derived from the current latest
// row (by id): previous saldo plus this row's pemasukan minus pengeluaran.
// The new row receives an id greater than all existing ones, so no later rows
// need adjusting.
func (s *Service) Create(t models.Transaction) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = 0
	t.Tanggal = NormalizeDate(t.Tanggal)
	t.Waktu = NormalizeTime(t.Waktu)
	err := s.store.DB().Transaction(func(tx *gorm.DB) error {
		st := s.store.withTx(tx)
		prev, ok, err := st.Latest()
		if err != nil {
			return err
		}
		var prevSaldo int64
		if ok {
			prevSaldo = prev.Saldo
		}
		t.Saldo = prevSaldo + t.Pemasukan - t.Pengeluaran
		return st.Insert(&t)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return t, nil
}

// Update merges the patch into the stored row, then repairs saldo in two
// stages: the edited row is recomputed with a full replay over all rows up to
// and including it (self-heals any earlier drift), and every later row is
// shifted by the net change of this edit.
func (s *Service) Update(id uint, p Patch) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated models.Transaction
	err := s.store.DB().Transaction(func(tx *gorm.DB) error {
		st := s.store.withTx(tx)
		orig, err := st.ByID(id)
		if err != nil {
			return err
		}

		merged := orig
		if p.Tanggal != nil {
			merged.Tanggal = NormalizeDate(*p.Tanggal)
		}
		if p.Waktu != nil {
			merged.Waktu = NormalizeTime(*p.Waktu)
		}
		if p.NamaAkun != nil {
			merged.NamaAkun = *p.NamaAkun
		}
		if p.Pemasukan != nil {
			merged.Pemasukan = *p.Pemasukan
		}
		if p.Pengeluaran != nil {
			merged.Pengeluaran = *p.Pengeluaran
		}
		if p.Keterangan != nil {
			merged.Keterangan = *p.Keterangan
		}

		if err := st.UpdateFields(id, map[string]any{
			"tanggal":     merged.Tanggal,
			"waktu":       merged.Waktu,
			"nama_akun":   merged.NamaAkun,
			"pemasukan":   merged.Pemasukan,
			"pengeluaran": merged.Pengeluaran,
			"keterangan":  merged.Keterangan,
		}); err != nil {
			return err
		}

		// Full replay from the first row through the edited one.
		rows, err := st.UpTo(id)
		if err != nil {
			return err
		}
		var saldo int64
		for _, r := range rows {
			saldo += r.Pemasukan - r.Pengeluaran
			if r.ID == id {
				if err := st.SetSaldo(id, saldo); err != nil {
					return err
				}
				merged.Saldo = saldo
			}
		}

		// Later rows only shift by the delta of this edit.
		netChange := (merged.Pemasukan - merged.Pengeluaran) - (orig.Pemasukan - orig.Pengeluaran)
		if netChange != 0 {
			later, err := st.After(id)
			if err != nil {
				return err
			}
			for _, r := range later {
				if err := st.SetSaldo(r.ID, r.Saldo+netChange); err != nil {
					return err
				}
			}
		}
		updated = merged
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return updated, nil
}

// Delete removes a row and subtracts its own pemasukan-pengeluaran delta from
// the saldo of every later row, which is exactly the amount each later
// cumulative sum loses.
func (s *Service) Delete(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.DB().Transaction(func(tx *gorm.DB) error {
		st := s.store.withTx(tx)
		t, err := st.ByID(id)
		if err != nil {
			return err
		}
		adjustment := t.Pemasukan - t.Pengeluaran
		if err := st.Delete(id); err != nil {
			return err
		}
		later, err := st.After(id)
		if err != nil {
			return err
		}
		for _, r := range later {
			if err := st.SetSaldo(r.ID, r.Saldo-adjustment); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAll empties the ledger; the next Create starts from saldo 0.
func (s *Service) DeleteAll() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.DeleteAll()
}

func (s *Service) Get(id uint) (models.Transaction, error) {
	return s.store.ByID(id)
}

func (s *Service) List(f Filter, limit, offset int) ([]models.Transaction, error) {
	return s.store.List(f, limit, offset)
}

// ListPage returns one page of matching rows plus the pagination envelope.
func (s *Service) ListPage(f Filter, pr PageRequest) ([]models.Transaction, Pagination, error) {
	total, err := s.store.Count(f)
	if err != nil {
		return nil, Pagination{}, err
	}
	items, err := s.store.List(f, pr.Limit, pr.Offset())
	if err != nil {
		return nil, Pagination{}, err
	}
	return items, NewPagination(pr, total), nil
}
