package tables

import "time"

// Checkout holds the billing rates. Rates are whole percents and every
// rounding step is half-up on exact integers (floor(x + 0.5)); the final total
// is floored to RoundUnit.
type Checkout struct {
	TaxPercent     int64
	ServicePercent int64
	RoundUnit      int64
}

var DefaultCheckout = Checkout{TaxPercent: 10, ServicePercent: 25, RoundUnit: 10}

type ReceiptLine struct {
	LineID    string  `json:"lineId"`
	ProductID *string `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice int64   `json:"price"`
	Quantity  int     `json:"qty"`
	Amount    int64   `json:"amount"`
	Taxable   bool    `json:"taxable"`
}

type Receipt struct {
	TableID            string        `json:"tableId"`
	OpenedAt           time.Time     `json:"openedAt"`
	Lines              []ReceiptLine `json:"items"`
	TaxableSubtotal    int64         `json:"taxableSubtotal"`
	NonTaxableSubtotal int64         `json:"nonTaxableSubtotal"`
	Tax                int64         `json:"tax"`
	Service            int64         `json:"service"`
	Total              int64         `json:"total"`
}

// Compute prices lines. Lines whose product resolves to a set menu are
// non-taxable; everything else, ad hoc lines included, is taxable.
func (c Checkout) Compute(table Table, lines []OrderLine, products ProductLookup) Receipt {
	r := Receipt{
		TableID:  table.TableID,
		OpenedAt: table.OpenedAt,
		Lines:    make([]ReceiptLine, 0, len(lines)),
	}
	for _, line := range lines {
		taxable := true
		if line.ProductID != nil {
			if p, ok := products.Lookup(*line.ProductID); ok && p.IsSet() {
				taxable = false
			}
		}
		amount := line.Amount()
		if taxable {
			r.TaxableSubtotal += amount
		} else {
			r.NonTaxableSubtotal += amount
		}
		r.Lines = append(r.Lines, ReceiptLine{
			LineID:    line.LineID,
			ProductID: line.clone().ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Amount:    amount,
			Taxable:   taxable,
		})
	}

	taxIncluded := applyPercent(r.TaxableSubtotal, 100+c.TaxPercent)
	serviceIncluded := applyPercent(taxIncluded, 100+c.ServicePercent)
	gross := serviceIncluded + r.NonTaxableSubtotal

	unit := c.RoundUnit
	if unit <= 0 {
		unit = 1
	}
	r.Total = floorDiv(gross, unit) * unit
	r.Tax = taxIncluded - r.TaxableSubtotal
	r.Service = serviceIncluded - taxIncluded
	return r
}

// applyPercent returns round(v * pct / 100), half-up.
func applyPercent(v, pct int64) int64 {
	return floorDiv(v*pct+50, 100)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
