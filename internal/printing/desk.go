package printing

import (
	"context"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/tables"
	"go.uber.org/zap"
)

// Ledger is the part of tables.Service the desk prints from.
type Ledger interface {
	GetReceipt(tableID string) (tables.Receipt, error)
	ClaimSlip(tableID, printGroup string) ([]tables.OrderLine, error)
	ReleaseSlip(printed map[string]int) int
}

// Desk renders receipts and order slips and sends them to a Printer. A failed
// print leaves printed quantities as they were.
type Desk struct {
	ledger   Ledger
	printer  Printer
	checkout tables.Checkout
	log      *zap.Logger
	now      func() time.Time
}

func NewDesk(ledger Ledger, printer Printer, checkout tables.Checkout, log *zap.Logger) *Desk {
	if log == nil {
		log = zap.NewNop()
	}
	return &Desk{
		ledger:   ledger,
		printer:  printer,
		checkout: checkout,
		log:      log,
		now:      time.Now,
	}
}

func (d *Desk) PrintReceipt(ctx context.Context, tableID string) (tables.Receipt, error) {
	r, err := d.ledger.GetReceipt(tableID)
	if err != nil {
		return tables.Receipt{}, err
	}
	ctx = WithJob(ctx, tableID, "receipt")
	if err := d.printer.Print(ctx, RenderReceipt(r, d.checkout), TargetReceipt); err != nil {
		d.log.Error("receipt print failed", zap.String("table", tableID), zap.Error(err))
		return tables.Receipt{}, err
	}
	d.log.Info("receipt printed", zap.String("table", tableID), zap.Int64("total", r.Total))
	return r, nil
}

// PrintOrder claims everything not yet printed for target and prints it as
// one slip. A failed print releases the claim. It reports false when there
// was nothing to print.
func (d *Desk) PrintOrder(ctx context.Context, tableID, target string) (bool, error) {
	lines, err := d.ledger.ClaimSlip(tableID, target)
	if err != nil {
		return false, err
	}
	slip, printed := BuildSlip(tableID, target, lines, d.now())
	if len(slip.Lines) == 0 {
		return false, nil
	}
	ctx = WithJob(ctx, tableID, "order")
	if err := d.printer.Print(ctx, RenderSlip(slip), target); err != nil {
		d.ledger.ReleaseSlip(printed)
		d.log.Error("order slip print failed", zap.String("table", tableID), zap.String("target", target), zap.Error(err))
		return false, err
	}
	d.log.Info("order slip printed", zap.String("table", tableID), zap.String("target", target), zap.Int("rows", len(slip.Lines)))
	return true, nil
}
