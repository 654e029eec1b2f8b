package printing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/tables"
)

const rule = "────────────────────"

// RenderReceipt lays out the bill for the receipt printer.
func RenderReceipt(r tables.Receipt, c tables.Checkout) string {
	var b strings.Builder
	line := func(format string, a ...any) {
		fmt.Fprintf(&b, format, a...)
		b.WriteByte('\n')
	}

	line(rule)
	line("       RECEIPT")
	line(rule)
	line("TABLE: %s", r.TableID)
	line("")
	line("[ ITEMS ]")
	for _, it := range r.Lines {
		line("%-14s%4s %8s", it.Name, "x"+strconv.Itoa(it.Quantity), yen(it.Amount))
	}
	line("")
	line(rule)
	if r.NonTaxableSubtotal != 0 {
		line("%-22s %s", "Set menu", yen(r.NonTaxableSubtotal))
	}
	line("%-22s %s", "Taxable subtotal", yen(r.TaxableSubtotal))
	line("%-22s %s", fmt.Sprintf("Tax (%d%%)", c.TaxPercent), yen(r.Tax))
	line("%-22s %s", fmt.Sprintf("Service (%d%%)", c.ServicePercent), yen(r.Service))
	line(rule)
	line("%-22s %s", "TOTAL", yen(r.Total))
	b.WriteString(rule)
	return b.String()
}

// SlipLine is one aggregated row of an order slip.
type SlipLine struct {
	Name     string
	Quantity int
}

type Slip struct {
	TableID   string
	Target    string
	OrderedBy string
	At        time.Time
	Lines     []SlipLine
}

// BuildSlip aggregates the unprinted part of lines by product (or by name
// for ad hoc lines). It also returns, per line id, the quantity the slip
// covers, ready for ReleaseSlip when the print fails.
func BuildSlip(tableID, target string, lines []tables.OrderLine, at time.Time) (Slip, map[string]int) {
	s := Slip{TableID: tableID, Target: target, At: at}
	printed := make(map[string]int, len(lines))
	index := map[string]int{}
	for _, l := range lines {
		qty := l.Unprinted()
		if qty <= 0 {
			continue
		}
		if s.OrderedBy == "" {
			s.OrderedBy = string(l.AddedBy)
		}
		key := l.Name
		if l.ProductID != nil {
			key = "id:" + *l.ProductID
		}
		if i, ok := index[key]; ok {
			s.Lines[i].Quantity += qty
		} else {
			index[key] = len(s.Lines)
			s.Lines = append(s.Lines, SlipLine{Name: l.Name, Quantity: qty})
		}
		printed[l.LineID] = qty
	}
	return s, printed
}

func RenderSlip(s Slip) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s ORDER\n", strings.ToUpper(s.Target))
	fmt.Fprintf(&b, "TABLE: %s\n", s.TableID)
	fmt.Fprintf(&b, "BY: %s\n", s.OrderedBy)
	fmt.Fprintf(&b, "TIME: %s\n", s.At.Format("2006-01-02 15:04"))
	b.WriteString("----------------\n")
	for _, l := range s.Lines {
		fmt.Fprintf(&b, "%s x%d\n", l.Name, l.Quantity)
	}
	b.WriteString("----------------\n")
	return b.String()
}

// yen formats an amount with thousands separators, e.g. ¥1,370.
func yen(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "¥" + b.String()
}
