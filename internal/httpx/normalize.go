package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ariefcatur/go-table-orders/internal/tables"
)

var errBadPayload = errors.New("invalid payload")

// number accepts a JSON number or a numeric string and remembers whether the
// field was present at all.
type number struct {
	v   float64
	set bool
}

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", errBadPayload, s)
		}
		n.v, n.set = v, true
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: %s is not a number", errBadPayload, b)
	}
	n.v, n.set = v, true
	return nil
}

// qty returns the value as a whole quantity, def when absent, and 0 (which
// the ledger rejects) for fractions.
func (n number) qty(def int) int {
	if !n.set {
		return def
	}
	if n.v != math.Trunc(n.v) || math.Abs(n.v) > math.MaxInt32 {
		return 0
	}
	return int(n.v)
}

func (n number) amount() int64 {
	if !n.set {
		return 0
	}
	return int64(math.Round(n.v))
}

// itemPayload is the loose item shape terminals send.
type itemPayload struct {
	ProductID   *string `json:"productId"`
	Name        *string `json:"name"`
	Brand       string  `json:"brand"`
	Label       *string `json:"label"`
	Price       number  `json:"price"`
	Qty         number  `json:"qty"`
	Quantity    number  `json:"quantity"`
	AddedBy     string  `json:"addedBy"`
	Category    string  `json:"category"`
	Section     string  `json:"section"`
	SubCategory string  `json:"subCategory"`
	PrintGroup  *string `json:"printGroup"`
	PrintTarget *string `json:"printTarget"`
}

func (p itemPayload) quantity(def int) int {
	if p.Qty.set {
		return p.Qty.qty(def)
	}
	return p.Quantity.qty(def)
}

// name prefers name, then "brand / label", then label.
func (p itemPayload) name() string {
	switch {
	case p.Name != nil:
		return *p.Name
	case p.Brand != "" && p.Label != nil && *p.Label != "":
		return p.Brand + " / " + *p.Label
	case p.Label != nil:
		return *p.Label
	default:
		return "unknown"
	}
}

func (p itemPayload) printGroup() string {
	if p.PrintGroup != nil {
		return *p.PrintGroup
	}
	if p.PrintTarget != nil {
		return *p.PrintTarget
	}
	return ""
}

// input converts the payload into the canonical add-line input.
func (p itemPayload) input(addedBy string, defQty int) tables.AddLineInput {
	in := tables.AddLineInput{
		Name:        p.name(),
		UnitPrice:   p.Price.amount(),
		Quantity:    p.quantity(defQty),
		AddedBy:     tables.ParseAddedBy(addedBy),
		Category:    p.Category,
		Brand:       p.Brand,
		Section:     p.Section,
		SubCategory: p.SubCategory,
		PrintGroup:  p.printGroup(),
	}
	if p.Label != nil {
		in.Label = *p.Label
	}
	if p.ProductID != nil {
		in.ProductID = strings.TrimSpace(*p.ProductID)
	}
	return in
}

// orderPayload is the legacy order submission. Items may arrive under items,
// lines or order.lines, and the table under tableId or table.
type orderPayload struct {
	TableID   json.RawMessage `json:"tableId"`
	Table     json.RawMessage `json:"table"`
	OrderedBy string          `json:"orderedBy"`
	Items     []itemPayload   `json:"items"`
	Lines     []itemPayload   `json:"lines"`
	Order     *struct {
		Lines []itemPayload `json:"lines"`
	} `json:"order"`
}

// normalizeOrder turns a legacy order body into a table id and canonical
// inputs. Missing quantities default to 1.
func normalizeOrder(body []byte) (string, []tables.AddLineInput, error) {
	var p orderPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return "", nil, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	tableID := scalarString(p.TableID)
	if tableID == "" {
		tableID = scalarString(p.Table)
	}

	items := p.Items
	if len(items) == 0 {
		items = p.Lines
	}
	if len(items) == 0 && p.Order != nil {
		items = p.Order.Lines
	}
	if tableID == "" || len(items) == 0 {
		return "", nil, fmt.Errorf("%w: tableId and items are required", errBadPayload)
	}

	ins := make([]tables.AddLineInput, 0, len(items))
	for _, it := range items {
		addedBy := p.OrderedBy
		if it.AddedBy != "" {
			addedBy = it.AddedBy
		}
		ins = append(ins, it.input(addedBy, 1))
	}
	return tableID, ins, nil
}

// scalarString reads a JSON string or number as text.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
