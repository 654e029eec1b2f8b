package tables

import "time"

type AddedBy string

const (
	AddedByGuest AddedBy = "guest"
	AddedByOwner AddedBy = "owner"
)

// ParseAddedBy maps anything that is not "owner" to guest.
func ParseAddedBy(s string) AddedBy {
	if AddedBy(s) == AddedByOwner {
		return AddedByOwner
	}
	return AddedByGuest
}

const DefaultPrintGroup = "kitchen"

type Table struct {
	TableID  string     `json:"tableId"`
	Status   Status     `json:"status"`
	OpenedAt time.Time  `json:"openedAt"`
	ClosedAt *time.Time `json:"closedAt"`
}

type OrderLine struct {
	LineID      string  `json:"lineId"`
	ProductID   *string `json:"productId"`
	Name        string  `json:"name"`
	UnitPrice   int64   `json:"price"`
	Quantity    int     `json:"qty"`
	AddedBy     AddedBy `json:"addedBy"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	Label       string  `json:"label"`
	Section     string  `json:"section"`
	SubCategory string  `json:"subCategory"`
	PrintGroup  string  `json:"printGroup"`
	PrintedQty  int     `json:"printedQty"`
}

func (l OrderLine) Amount() int64 { return l.UnitPrice * int64(l.Quantity) }

// Unprinted is the part of the quantity not yet sent on an order slip.
func (l OrderLine) Unprinted() int { return max(l.Quantity-l.PrintedQty, 0) }

// sameIdentity compares the merge key (productId, name, unitPrice, addedBy).
func (l OrderLine) sameIdentity(o OrderLine) bool {
	if (l.ProductID == nil) != (o.ProductID == nil) {
		return false
	}
	if l.ProductID != nil && *l.ProductID != *o.ProductID {
		return false
	}
	return l.Name == o.Name && l.UnitPrice == o.UnitPrice && l.AddedBy == o.AddedBy
}

func (l OrderLine) clone() OrderLine {
	if l.ProductID != nil {
		pid := *l.ProductID
		l.ProductID = &pid
	}
	return l
}

// AddLineInput is the canonical add-line contract. An empty ProductID means
// an ad hoc item priced by Name and UnitPrice.
type AddLineInput struct {
	ProductID   string
	Name        string
	UnitPrice   int64
	Quantity    int
	AddedBy     AddedBy
	Category    string
	Brand       string
	Label       string
	Section     string
	SubCategory string
	PrintGroup  string
}

type TableOrder struct {
	TableID string      `json:"tableId"`
	Items   []OrderLine `json:"items"`
}
