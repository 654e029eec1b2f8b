package tables

import (
	"fmt"
	"sort"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/catalog"
	"github.com/google/uuid"
)

// ProductLookup is the read side of the catalog the ledger prices lines with.
type ProductLookup interface {
	Lookup(productID string) (catalog.Product, bool)
}

// Ledger owns table lifecycles and their order lines. It does no locking of
// its own; Service serializes every call.
type Ledger struct {
	products ProductLookup
	tables   map[string]*Table
	orders   map[string]*TableOrder

	now       func() time.Time
	newLineID func() string
}

func NewLedger(products ProductLookup) *Ledger {
	return &Ledger{
		products:  products,
		tables:    map[string]*Table{},
		orders:    map[string]*TableOrder{},
		now:       func() time.Time { return time.Now().UTC() },
		newLineID: func() string { return "l_" + uuid.NewString() },
	}
}

// ---------- Table ----------

func (l *Ledger) Table(tableID string) (Table, bool) {
	t, ok := l.tables[tableID]
	if !ok {
		return Table{}, false
	}
	return *t, true
}

// Tables returns every tracked table, closed ones included, ordered by id.
func (l *Ledger) Tables() []Table {
	out := make([]Table, 0, len(l.tables))
	for _, t := range l.tables {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out
}

// Open starts a lifecycle for an absent or closed table. Opening a table that
// is ordering or in precheck returns it unchanged. Reopening a closed table
// discards its previous lines.
func (l *Ledger) Open(tableID string) Table {
	if t, ok := l.tables[tableID]; ok && t.Status != StatusClosed {
		return *t
	}
	l.startLifecycle(tableID, l.now())
	return *l.tables[tableID]
}

func (l *Ledger) startLifecycle(tableID string, openedAt time.Time) {
	l.tables[tableID] = &Table{
		TableID:  tableID,
		Status:   StatusOrdering,
		OpenedAt: openedAt,
	}
	l.orders[tableID] = &TableOrder{TableID: tableID, Items: []OrderLine{}}
}

func (l *Ledger) Close(tableID string) (Table, error) {
	t, ok := l.tables[tableID]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	now := l.now()
	t.Status = StatusClosed
	t.ClosedAt = &now
	return *t, nil
}

// Precheck marks the bill as requested.
func (l *Ledger) Precheck(tableID string) (Table, error) {
	t, ok := l.tables[tableID]
	if !ok {
		return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	if !CanTransition(t.Status, StatusPrecheck) {
		return Table{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, StatusPrecheck)
	}
	t.Status = StatusPrecheck
	return *t, nil
}

// ---------- Order lines ----------

// Lines returns a copy of the table's lines in insertion order.
func (l *Ledger) Lines(tableID string) []OrderLine {
	o, ok := l.orders[tableID]
	if !ok {
		return []OrderLine{}
	}
	out := make([]OrderLine, len(o.Items))
	for i, it := range o.Items {
		out[i] = it.clone()
	}
	return out
}

func (l *Ledger) order(tableID string) *TableOrder {
	o, ok := l.orders[tableID]
	if !ok {
		o = &TableOrder{TableID: tableID, Items: []OrderLine{}}
		l.orders[tableID] = o
	}
	return o
}

// buildLine validates in and turns it into a line without touching state.
func (l *Ledger) buildLine(in AddLineInput) (OrderLine, error) {
	if in.Quantity <= 0 {
		return OrderLine{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, in.Quantity)
	}
	line := OrderLine{
		Name:        in.Name,
		UnitPrice:   in.UnitPrice,
		Quantity:    in.Quantity,
		AddedBy:     ParseAddedBy(string(in.AddedBy)),
		Category:    in.Category,
		Brand:       in.Brand,
		Label:       in.Label,
		Section:     in.Section,
		SubCategory: in.SubCategory,
		PrintGroup:  in.PrintGroup,
	}
	if in.ProductID != "" {
		p, ok := l.products.Lookup(in.ProductID)
		if !ok || !p.IsActive {
			return OrderLine{}, fmt.Errorf("%w: %s", ErrInvalidProduct, in.ProductID)
		}
		pid := p.ProductID
		line.ProductID = &pid
		line.Name = p.Name
		line.UnitPrice = p.Price
		if line.Category == "" {
			line.Category = p.Category
		}
		if line.PrintGroup == "" {
			line.PrintGroup = p.PrintTarget
		}
	}
	if line.PrintGroup == "" {
		line.PrintGroup = DefaultPrintGroup
	}
	return line, nil
}

// AddLine appends a new line. It does not look at the table status; callers
// decide whether the table may take orders.
func (l *Ledger) AddLine(tableID string, in AddLineInput) (OrderLine, error) {
	line, err := l.buildLine(in)
	if err != nil {
		return OrderLine{}, err
	}
	line.LineID = l.newLineID()
	o := l.order(tableID)
	o.Items = append(o.Items, line)
	return line.clone(), nil
}

// OpenWithLines validates every input, then opens the table and appends the
// lines. Nothing changes when any input is invalid.
func (l *Ledger) OpenWithLines(tableID string, ins []AddLineInput) ([]OrderLine, error) {
	lines := make([]OrderLine, 0, len(ins))
	for i, in := range ins {
		line, err := l.buildLine(in)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	l.Open(tableID)
	o := l.order(tableID)
	out := make([]OrderLine, 0, len(lines))
	for _, line := range lines {
		line.LineID = l.newLineID()
		o.Items = append(o.Items, line)
		out = append(out, line.clone())
	}
	return out, nil
}

func (l *Ledger) findLine(tableID, lineID string) (*OrderLine, error) {
	if o, ok := l.orders[tableID]; ok {
		for i := range o.Items {
			if o.Items[i].LineID == lineID {
				return &o.Items[i], nil
			}
		}
	}
	return nil, fmt.Errorf("%w: table %s line %s", ErrLineNotFound, tableID, lineID)
}

func (l *Ledger) UpdateLineQty(tableID, lineID string, qty int) (OrderLine, error) {
	if qty <= 0 {
		return OrderLine{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	line, err := l.findLine(tableID, lineID)
	if err != nil {
		return OrderLine{}, err
	}
	line.Quantity = qty
	line.PrintedQty = min(line.PrintedQty, qty)
	return line.clone(), nil
}

func (l *Ledger) RemoveLine(tableID, lineID string) error {
	if _, err := l.findLine(tableID, lineID); err != nil {
		return err
	}
	o := l.orders[tableID]
	kept := o.Items[:0]
	for _, it := range o.Items {
		if it.LineID != lineID {
			kept = append(kept, it)
		}
	}
	o.Items = kept
	return nil
}

// RemoveLinesByNamePrice drops every line with that name and unit price and
// reports how many went.
func (l *Ledger) RemoveLinesByNamePrice(tableID, name string, price int64) (int, error) {
	o, ok := l.orders[tableID]
	removed := 0
	if ok {
		for _, it := range o.Items {
			if it.Name == name && it.UnitPrice == price {
				removed++
			}
		}
	}
	if removed == 0 {
		return 0, fmt.Errorf("%w: table %s name %q price %d", ErrLineNotFound, tableID, name, price)
	}
	kept := make([]OrderLine, 0, len(o.Items)-removed)
	for _, it := range o.Items {
		if it.Name != name || it.UnitPrice != price {
			kept = append(kept, it)
		}
	}
	o.Items = kept
	return removed, nil
}

// MarkPrinted records printed quantities per line id. Lines that disappeared
// since the slip was built are skipped.
func (l *Ledger) MarkPrinted(tableID string, printed map[string]int) int {
	o, ok := l.orders[tableID]
	if !ok {
		return 0
	}
	marked := 0
	for i := range o.Items {
		qty, ok := printed[o.Items[i].LineID]
		if !ok {
			continue
		}
		next := min(o.Items[i].PrintedQty+qty, o.Items[i].Quantity)
		if next != o.Items[i].PrintedQty {
			o.Items[i].PrintedQty = next
			marked++
		}
	}
	return marked
}

// ReleasePrinted gives back printed quantity by line id, wherever the line
// lives now. Lines folded into another line by a merge are no longer
// addressable and are skipped.
func (l *Ledger) ReleasePrinted(printed map[string]int) int {
	released := 0
	for _, o := range l.orders {
		for i := range o.Items {
			qty, ok := printed[o.Items[i].LineID]
			if !ok {
				continue
			}
			next := max(o.Items[i].PrintedQty-qty, 0)
			if next != o.Items[i].PrintedQty {
				o.Items[i].PrintedQty = next
				released++
			}
		}
	}
	return released
}

// ---------- Move / merge ----------

func (l *Ledger) checkPair(fromID, toID string) (*Table, error) {
	if fromID == toID {
		return nil, fmt.Errorf("%w: %s", ErrSameTable, fromID)
	}
	src, ok := l.tables[fromID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, fromID)
	}
	return src, nil
}

// MoveOrder hands the whole order of fromID to an empty table toID and
// closes fromID.
func (l *Ledger) MoveOrder(fromID, toID string) error {
	src, err := l.checkPair(fromID, toID)
	if err != nil {
		return err
	}
	if o, ok := l.orders[toID]; ok && len(o.Items) > 0 {
		return fmt.Errorf("%w: %s has %d lines", ErrTargetOccupied, toID, len(o.Items))
	}

	lines := l.order(fromID).Items
	l.startLifecycle(toID, src.OpenedAt)
	l.orders[toID].Items = lines
	l.closeSource(src)
	return nil
}

// MergeOrder folds fromID's lines into toID, summing quantities of lines with
// the same identity, and closes fromID. A closed destination starts a new
// lifecycle first, exactly as Open would.
func (l *Ledger) MergeOrder(fromID, toID string) error {
	src, err := l.checkPair(fromID, toID)
	if err != nil {
		return err
	}

	dst, ok := l.tables[toID]
	switch {
	case !ok || dst.Status == StatusClosed:
		l.startLifecycle(toID, src.OpenedAt)
	default:
		dst.Status = StatusOrdering
		dst.ClosedAt = nil
	}

	into := l.order(toID)
	for _, line := range l.order(fromID).Items {
		merged := false
		for i := range into.Items {
			if into.Items[i].sameIdentity(line) {
				into.Items[i].Quantity += line.Quantity
				into.Items[i].PrintedQty += line.PrintedQty
				merged = true
				break
			}
		}
		if !merged {
			into.Items = append(into.Items, line)
		}
	}
	l.closeSource(src)
	return nil
}

func (l *Ledger) closeSource(src *Table) {
	now := l.now()
	src.Status = StatusClosed
	src.ClosedAt = &now
	l.orders[src.TableID] = &TableOrder{TableID: src.TableID, Items: []OrderLine{}}
}
