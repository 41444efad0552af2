package domain

import "github.com/shopspring/decimal"

func init() {
	// Prices go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Table struct {
	ID       int             `json:"table_id"`
	Capacity int             `json:"capacity"`
	Price    decimal.Decimal `json:"price"`
}

func NewTable(id, capacity int, price int64) Table {
	return Table{ID: id, Capacity: capacity, Price: decimal.NewFromInt(price)}
}

// CartEntry is the cost preview a user holds before reserving. A single
// table is priced per reservation, so the total equals the table price.
type CartEntry struct {
	TableID    int             `json:"table_id"`
	TablePrice decimal.Decimal `json:"table_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (c CartEntry) Equal(other CartEntry) bool {
	return c.TableID == other.TableID &&
		c.TablePrice.Equal(other.TablePrice) &&
		c.TotalPrice.Equal(other.TotalPrice)
}

type Reservation struct {
	ID         int       `json:"reservation_id"`
	CustomerID int       `json:"customer_id"`
	TableID    int       `json:"table_id"`
	Date       Date      `json:"date"`
	Time       TimeOfDay `json:"time"`
	Cost       CartEntry `json:"cost"`
}

func (r Reservation) Slot() Slot {
	return Slot{TableID: r.TableID, Date: r.Date, Time: r.Time}
}

// Slot is the booking key. Two reservations never share one.
type Slot struct {
	TableID int
	Date    Date
	Time    TimeOfDay
}
