package memory

import "github.com/robertarktes/table-reservations/internal/domain"

// DefaultTables is the seed catalog every process starts with.
func DefaultTables() []domain.Table {
	return []domain.Table{
		domain.NewTable(1, 2, 500),
		domain.NewTable(2, 4, 1000),
		domain.NewTable(3, 6, 1500),
	}
}

// Catalog is fixed after construction, so it needs no locking.
type Catalog struct {
	tables []domain.Table
}

func NewCatalog(tables []domain.Table) *Catalog {
	return &Catalog{tables: append([]domain.Table(nil), tables...)}
}

func (c *Catalog) CheckAvailability(guests int) []domain.Table {
	var out []domain.Table
	for _, t := range c.tables {
		if t.Capacity >= guests {
			out = append(out, t)
		}
	}
	return out
}

func (c *Catalog) FindByID(tableID int) (domain.Table, bool) {
	for _, t := range c.tables {
		if t.ID == tableID {
			return t, true
		}
	}
	return domain.Table{}, false
}

func (c *Catalog) All() []domain.Table {
	return append([]domain.Table(nil), c.tables...)
}
