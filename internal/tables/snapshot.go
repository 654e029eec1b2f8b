package tables

import "time"

// MessageTypeSnapshot tags realtime frames that carry a full Snapshot.
const MessageTypeSnapshot = "snapshot"

type SnapshotTable struct {
	TableID  string     `json:"tableId"`
	Status   Status     `json:"status"`
	OpenedAt time.Time  `json:"openedAt"`
	ClosedAt *time.Time `json:"closedAt,omitempty"`
	Order    OrderView  `json:"order"`
}

type OrderView struct {
	TableID  string      `json:"tableId"`
	OpenedAt time.Time   `json:"openedAt"`
	Items    []OrderLine `json:"items"`
}

// SnapshotItem is the flattened "orders -> items" row older terminals read.
type SnapshotItem struct {
	LineID      string  `json:"lineId"`
	ProductID   *string `json:"productId"`
	Category    string  `json:"category"`
	Brand       string  `json:"brand"`
	Name        string  `json:"name"`
	Label       string  `json:"label"`
	Price       int64   `json:"price"`
	Qty         int     `json:"qty"`
	Quantity    int     `json:"quantity"`
	Section     *string `json:"section"`
	SubCategory string  `json:"subCategory"`
	ShouldPrint bool    `json:"shouldPrint"`
	PrintGroup  string  `json:"printGroup"`
	AddedBy     AddedBy `json:"addedBy"`
}

type Snapshot struct {
	Tables        map[string]SnapshotTable  `json:"tables"`
	OrdersByTable map[string][]string       `json:"ordersByTable"`
	OrderItems    map[string][]SnapshotItem `json:"orderItems"`
	At            time.Time                 `json:"at"`
}

// Message is the envelope pushed to viewers.
type Message struct {
	Type    string   `json:"type"`
	Payload Snapshot `json:"payload"`
}

// OrderGroupID is the synthetic per-table order id used in the snapshot.
func OrderGroupID(tableID string) string { return "rt_" + tableID }

// BuildSnapshot projects every tracked table and its lines into one document.
func BuildSnapshot(l *Ledger) Snapshot {
	snap := Snapshot{
		Tables:        map[string]SnapshotTable{},
		OrdersByTable: map[string][]string{},
		OrderItems:    map[string][]SnapshotItem{},
		At:            l.now(),
	}
	for _, t := range l.Tables() {
		lines := l.Lines(t.TableID)
		snap.Tables[t.TableID] = SnapshotTable{
			TableID:  t.TableID,
			Status:   t.Status,
			OpenedAt: t.OpenedAt,
			ClosedAt: t.ClosedAt,
			Order: OrderView{
				TableID:  t.TableID,
				OpenedAt: t.OpenedAt,
				Items:    lines,
			},
		}

		groupID := OrderGroupID(t.TableID)
		snap.OrdersByTable[t.TableID] = []string{groupID}
		items := make([]SnapshotItem, 0, len(lines))
		for _, line := range lines {
			items = append(items, snapshotItem(line))
		}
		snap.OrderItems[groupID] = items
	}
	return snap
}

func snapshotItem(line OrderLine) SnapshotItem {
	label := line.Label
	if label == "" {
		label = line.Name
	}
	var section *string
	if line.Section != "" {
		s := line.Section
		section = &s
	}
	return SnapshotItem{
		LineID:      line.LineID,
		ProductID:   line.ProductID,
		Category:    line.Category,
		Brand:       line.Brand,
		Name:        line.Name,
		Label:       label,
		Price:       line.UnitPrice,
		Qty:         line.Quantity,
		Quantity:    line.Quantity,
		Section:     section,
		SubCategory: line.SubCategory,
		ShouldPrint: line.Unprinted() > 0,
		PrintGroup:  line.PrintGroup,
		AddedBy:     line.AddedBy,
	}
}
