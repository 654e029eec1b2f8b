package tables

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ariefcatur/go-table-orders/internal/realtime"
	"go.uber.org/zap"
)

// Publisher receives every encoded snapshot message after a mutation.
// Publish must not block.
type Publisher interface {
	Publish(msg []byte)
}

// Service is the single owner of the ledger. Each mutation runs validate,
// mutate, build snapshot and publish under one lock, so viewers only ever see
// snapshots of a ledger at rest, in mutation order.
type Service struct {
	mu       sync.Mutex
	ledger   *Ledger
	products ProductLookup
	checkout Checkout

	hub    *realtime.Hub
	mirror []Publisher
	log    *zap.Logger
}

type Option func(*Service)

func WithCheckout(c Checkout) Option { return func(s *Service) { s.checkout = c } }

// WithMirror adds publishers that get every snapshot besides the viewers.
func WithMirror(p ...Publisher) Option { return func(s *Service) { s.mirror = append(s.mirror, p...) } }

func WithLogger(log *zap.Logger) Option { return func(s *Service) { s.log = log } }

func NewService(products ProductLookup, hub *realtime.Hub, opts ...Option) *Service {
	s := &Service{
		ledger:   NewLedger(products),
		products: products,
		checkout: DefaultCheckout,
		hub:      hub,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// encodeLocked builds and encodes the current snapshot. Caller holds s.mu.
func (s *Service) encodeLocked() []byte {
	msg, err := json.Marshal(Message{Type: MessageTypeSnapshot, Payload: BuildSnapshot(s.ledger)})
	if err != nil {
		// Snapshot holds only strings, ints and times.
		panic(fmt.Sprintf("encode snapshot: %v", err))
	}
	return msg
}

// broadcastLocked publishes one fresh snapshot. Caller holds s.mu.
func (s *Service) broadcastLocked() {
	msg := s.encodeLocked()
	if s.hub != nil {
		s.hub.Publish(msg)
	}
	for _, m := range s.mirror {
		m.Publish(msg)
	}
}

// Connect registers a viewer whose first message is the current snapshot.
func (s *Service) Connect(ctx context.Context) *realtime.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hub.Subscribe(ctx, s.encodeLocked())
}

// ---------- Reads ----------

func (s *Service) GetSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildSnapshot(s.ledger)
}

func (s *Service) GetTable(tableID string) (Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Table(tableID)
}

func (s *Service) GetReceipt(tableID string) (Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.ledger.Table(tableID)
	if !ok {
		return Receipt{}, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	return s.checkout.Compute(t, s.ledger.Lines(tableID), s.products), nil
}

// ---------- Table lifecycle ----------

func (s *Service) OpenTable(tableID string) Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.ledger.Open(tableID)
	s.broadcastLocked()
	s.log.Info("table opened", zap.String("table", tableID), zap.Time("openedAt", t.OpenedAt))
	return t
}

func (s *Service) CloseTable(tableID string) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.ledger.Close(tableID)
	if err != nil {
		return Table{}, err
	}
	s.broadcastLocked()
	s.log.Info("table closed", zap.String("table", tableID))
	return t, nil
}

func (s *Service) Precheck(tableID string) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.ledger.Precheck(tableID)
	if err != nil {
		return Table{}, err
	}
	s.broadcastLocked()
	s.log.Info("table precheck", zap.String("table", tableID))
	return t, nil
}

// ---------- Lines ----------

func (s *Service) requireOrderingLocked(tableID string) error {
	t, ok := s.ledger.Table(tableID)
	if !ok || t.Status != StatusOrdering {
		return fmt.Errorf("%w: %s", ErrTableNotActive, tableID)
	}
	return nil
}

// AddItem adds one line to a table that is taking orders. Tables in precheck
// or closed are rejected with ErrTableNotActive.
func (s *Service) AddItem(tableID string, in AddLineInput) (OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireOrderingLocked(tableID); err != nil {
		return OrderLine{}, err
	}
	line, err := s.ledger.AddLine(tableID, in)
	if err != nil {
		return OrderLine{}, err
	}
	s.broadcastLocked()
	s.log.Info("line added",
		zap.String("table", tableID),
		zap.String("line", line.LineID),
		zap.String("name", line.Name),
		zap.Int("qty", line.Quantity),
		zap.String("addedBy", string(line.AddedBy)))
	return line, nil
}

// SubmitOrder opens the table if needed and appends every input, or does
// nothing when any input is invalid. One snapshot goes out for the batch.
func (s *Service) SubmitOrder(tableID string, ins []AddLineInput) ([]OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, err := s.ledger.OpenWithLines(tableID, ins)
	if err != nil {
		return nil, err
	}
	s.broadcastLocked()
	s.log.Info("order submitted", zap.String("table", tableID), zap.Int("lines", len(lines)))
	return lines, nil
}

func (s *Service) UpdateItemQty(tableID, lineID string, qty int) (OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, err := s.ledger.UpdateLineQty(tableID, lineID, qty)
	if err != nil {
		return OrderLine{}, err
	}
	s.broadcastLocked()
	s.log.Info("line qty updated", zap.String("table", tableID), zap.String("line", lineID), zap.Int("qty", qty))
	return line, nil
}

func (s *Service) RemoveItem(tableID, lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.RemoveLine(tableID, lineID); err != nil {
		return err
	}
	s.broadcastLocked()
	s.log.Info("line removed", zap.String("table", tableID), zap.String("line", lineID))
	return nil
}

func (s *Service) RemoveItemsByNamePrice(tableID, name string, price int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, err := s.ledger.RemoveLinesByNamePrice(tableID, name, price)
	if err != nil {
		return 0, err
	}
	s.broadcastLocked()
	s.log.Info("lines removed", zap.String("table", tableID), zap.String("name", name), zap.Int("count", n))
	return n, nil
}

// ---------- Move / merge ----------

func (s *Service) MoveOrder(fromID, toID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.MoveOrder(fromID, toID); err != nil {
		return err
	}
	s.broadcastLocked()
	s.log.Info("order moved", zap.String("from", fromID), zap.String("to", toID))
	return nil
}

func (s *Service) MergeOrder(fromID, toID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ledger.MergeOrder(fromID, toID); err != nil {
		return err
	}
	s.broadcastLocked()
	s.log.Info("order merged", zap.String("from", fromID), zap.String("to", toID))
	return nil
}

// ---------- Order slips ----------

// ClaimSlip returns the lines of printGroup that still have unprinted
// quantity, as they were before the claim, and marks that quantity printed in
// the same step. Concurrent claims never get the same units. A caller whose
// print fails hands the units back with ReleaseSlip.
func (s *Service) ClaimSlip(tableID, printGroup string) ([]OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ledger.Table(tableID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	var out []OrderLine
	claim := map[string]int{}
	for _, line := range s.ledger.Lines(tableID) {
		if line.PrintGroup == printGroup && line.Unprinted() > 0 {
			out = append(out, line)
			claim[line.LineID] = line.Unprinted()
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	s.ledger.MarkPrinted(tableID, claim)
	s.broadcastLocked()
	return out, nil
}

// ReleaseSlip returns claimed quantity by line id. It follows lines that were
// moved to another table since the claim.
func (s *Service) ReleaseSlip(printed map[string]int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.ledger.ReleasePrinted(printed)
	if n > 0 {
		s.broadcastLocked()
	}
	return n
}
