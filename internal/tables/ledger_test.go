package tables

import (
	"fmt"
	"testing"
	"time"

	"github.com/ariefcatur/go-table-orders/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Product{
		{ProductID: "p_1", Name: "Draft beer", Price: 600, Category: "drink", PrintTarget: "drink", IsActive: true},
		{ProductID: "p_2", Name: "Highball", Price: 550, Category: "drink", PrintTarget: "drink", IsActive: true},
		{ProductID: "p_3", Name: "Karaage", Price: 700, Category: "food", PrintTarget: "food", IsActive: true},
		{ProductID: "p_off", Name: "Seasonal", Price: 900, IsActive: false},
		{ProductID: "p_set", Name: "60 min set", Price: 3000, Type: catalog.TypeSet, IsActive: true},
	})
	require.NoError(t, err)
	return c
}

// testLedger returns a ledger with a controllable clock and sequential ids.
func testLedger(t *testing.T) (*Ledger, *time.Time) {
	t.Helper()
	l := NewLedger(testCatalog(t))
	now := time.Date(2026, 1, 2, 18, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	seq := 0
	l.newLineID = func() string {
		seq++
		return fmt.Sprintf("l_%d", seq)
	}
	return l, &now
}

func product(id string, qty int) AddLineInput {
	return AddLineInput{ProductID: id, Quantity: qty, AddedBy: AddedByGuest}
}

func TestOpen_CreatesAndIsIdempotent(t *testing.T) {
	l, now := testLedger(t)

	_, ok := l.Table("T1")
	assert.False(t, ok, "unopened table is simply absent")

	first := l.Open("T1")
	assert.Equal(t, StatusOrdering, first.Status)
	assert.Equal(t, *now, first.OpenedAt)
	assert.Nil(t, first.ClosedAt)

	*now = now.Add(time.Hour)
	again := l.Open("T1")
	assert.Equal(t, first, again, "open on an ordering table is a no-op")

	_, err := l.Precheck("T1")
	require.NoError(t, err)
	again = l.Open("T1")
	assert.Equal(t, StatusPrecheck, again.Status, "open on a precheck table is a no-op")
}

func TestClose_NotFoundThenOpenSucceeds(t *testing.T) {
	l, _ := testLedger(t)

	_, err := l.Close("T9")
	assert.ErrorIs(t, err, ErrTableNotFound)

	tbl := l.Open("T9")
	assert.Equal(t, StatusOrdering, tbl.Status)
}

func TestClose_KeepsLinesAndReopenClearsThem(t *testing.T) {
	l, now := testLedger(t)
	l.Open("T1")
	_, err := l.AddLine("T1", product("p_1", 2))
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	closed, err := l.Close("T1")
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, *now, *closed.ClosedAt)
	assert.Len(t, l.Lines("T1"), 1, "closing keeps the order for the receipt")

	*now = now.Add(time.Hour)
	reopened := l.Open("T1")
	assert.Equal(t, StatusOrdering, reopened.Status)
	assert.Equal(t, *now, reopened.OpenedAt)
	assert.Nil(t, reopened.ClosedAt)
	assert.Empty(t, l.Lines("T1"), "reopening starts a fresh order")
}

func TestPrecheck_Transitions(t *testing.T) {
	l, _ := testLedger(t)

	_, err := l.Precheck("T1")
	assert.ErrorIs(t, err, ErrTableNotFound)

	l.Open("T1")
	tbl, err := l.Precheck("T1")
	require.NoError(t, err)
	assert.Equal(t, StatusPrecheck, tbl.Status)

	_, err = l.Precheck("T1")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = l.Close("T1")
	require.NoError(t, err)
	_, err = l.Precheck("T1")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAddLine_FromCatalog(t *testing.T) {
	l, _ := testLedger(t)

	line, err := l.AddLine("T1", AddLineInput{ProductID: "p_1", Quantity: 3, AddedBy: AddedByOwner, Section: "bar"})
	require.NoError(t, err)

	assert.Equal(t, "l_1", line.LineID)
	require.NotNil(t, line.ProductID)
	assert.Equal(t, "p_1", *line.ProductID)
	assert.Equal(t, "Draft beer", line.Name)
	assert.Equal(t, int64(600), line.UnitPrice)
	assert.Equal(t, 3, line.Quantity)
	assert.Equal(t, AddedByOwner, line.AddedBy)
	assert.Equal(t, "drink", line.Category)
	assert.Equal(t, "drink", line.PrintGroup)
	assert.Equal(t, "bar", line.Section)

	lines := l.Lines("T1")
	require.Len(t, lines, 1, "container is created on first add")
	assert.Equal(t, line, lines[0])
}

func TestAddLine_AdHocDefaults(t *testing.T) {
	l, _ := testLedger(t)

	line, err := l.AddLine("T1", AddLineInput{Name: "Cover charge", UnitPrice: 500, Quantity: 1, AddedBy: "someone"})
	require.NoError(t, err)
	assert.Nil(t, line.ProductID)
	assert.Equal(t, "Cover charge", line.Name)
	assert.Equal(t, int64(500), line.UnitPrice)
	assert.Equal(t, AddedByGuest, line.AddedBy, "unknown addedBy falls back to guest")
	assert.Equal(t, DefaultPrintGroup, line.PrintGroup)
}

func TestAddLine_Validation(t *testing.T) {
	l, _ := testLedger(t)

	_, err := l.AddLine("T1", product("p_404", 1))
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = l.AddLine("T1", product("p_off", 1))
	assert.ErrorIs(t, err, ErrInvalidProduct, "inactive products cannot be ordered")

	for _, qty := range []int{0, -1} {
		_, err = l.AddLine("T1", product("p_1", qty))
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
	assert.Empty(t, l.Lines("T1"), "failed adds leave no trace")
}

func TestAddLine_KeepsInsertionOrder(t *testing.T) {
	l, _ := testLedger(t)
	for _, id := range []string{"p_3", "p_1", "p_2"} {
		_, err := l.AddLine("T1", product(id, 1))
		require.NoError(t, err)
	}
	_, err := l.UpdateLineQty("T1", "l_2", 4)
	require.NoError(t, err)

	var names []string
	for _, line := range l.Lines("T1") {
		names = append(names, line.Name)
	}
	assert.Equal(t, []string{"Karaage", "Draft beer", "Highball"}, names)
}

func TestOpenWithLines_AllOrNothing(t *testing.T) {
	l, _ := testLedger(t)

	_, err := l.OpenWithLines("T1", []AddLineInput{product("p_1", 1), product("p_404", 1)})
	assert.ErrorIs(t, err, ErrInvalidProduct)
	_, ok := l.Table("T1")
	assert.False(t, ok, "a rejected batch must not open the table")

	lines, err := l.OpenWithLines("T1", []AddLineInput{product("p_1", 1), {Name: "Ice", UnitPrice: 0, Quantity: 2}})
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	tbl, ok := l.Table("T1")
	require.True(t, ok)
	assert.Equal(t, StatusOrdering, tbl.Status)
}

func TestUpdateLineQty(t *testing.T) {
	l, _ := testLedger(t)
	line, err := l.AddLine("T1", product("p_1", 1))
	require.NoError(t, err)

	_, err = l.UpdateLineQty("T1", line.LineID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = l.UpdateLineQty("T1", "l_missing", 2)
	assert.ErrorIs(t, err, ErrLineNotFound)
	_, err = l.UpdateLineQty("T2", line.LineID, 2)
	assert.ErrorIs(t, err, ErrLineNotFound, "line ids are scoped to their table")

	updated, err := l.UpdateLineQty("T1", line.LineID, 5)
	require.NoError(t, err)
	once := l.Lines("T1")

	_, err = l.UpdateLineQty("T1", line.LineID, 5)
	require.NoError(t, err)
	assert.Equal(t, once, l.Lines("T1"), "same qty twice equals once")

	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, line.Name, updated.Name)
	assert.Equal(t, line.UnitPrice, updated.UnitPrice)
	assert.Equal(t, line.LineID, updated.LineID)
}

func TestRemoveLine(t *testing.T) {
	l, _ := testLedger(t)
	_, err := l.AddLine("T1", product("p_1", 1))
	require.NoError(t, err)
	before := len(l.Lines("T1"))

	line, err := l.AddLine("T1", product("p_2", 1))
	require.NoError(t, err)
	require.NoError(t, l.RemoveLine("T1", line.LineID))
	assert.Len(t, l.Lines("T1"), before)

	assert.ErrorIs(t, l.RemoveLine("T1", line.LineID), ErrLineNotFound)
}

func TestRemoveLinesByNamePrice(t *testing.T) {
	l, _ := testLedger(t)
	for _, in := range []AddLineInput{
		{Name: "Shot", UnitPrice: 1000, Quantity: 1},
		{Name: "Shot", UnitPrice: 1000, Quantity: 2},
		{Name: "Shot", UnitPrice: 1500, Quantity: 1},
	} {
		_, err := l.AddLine("T1", in)
		require.NoError(t, err)
	}

	n, err := l.RemoveLinesByNamePrice("T1", "Shot", 1000)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, l.Lines("T1"), 1)
	assert.Equal(t, int64(1500), l.Lines("T1")[0].UnitPrice)

	_, err = l.RemoveLinesByNamePrice("T1", "Shot", 1000)
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestMoveOrder(t *testing.T) {
	l, now := testLedger(t)
	opened := l.Open("A").OpenedAt
	_, err := l.AddLine("A", product("p_1", 2))
	require.NoError(t, err)
	_, err = l.AddLine("A", AddLineInput{Name: "Ice", Quantity: 1})
	require.NoError(t, err)
	before := l.Lines("A")

	*now = now.Add(30 * time.Minute)
	require.NoError(t, l.MoveOrder("A", "B"))

	assert.Equal(t, before, l.Lines("B"), "lines move unchanged")
	assert.Empty(t, l.Lines("A"))

	a, _ := l.Table("A")
	assert.Equal(t, StatusClosed, a.Status)
	require.NotNil(t, a.ClosedAt)
	assert.Equal(t, *now, *a.ClosedAt)

	b, _ := l.Table("B")
	assert.Equal(t, StatusOrdering, b.Status)
	assert.Equal(t, opened, b.OpenedAt, "destination keeps the original start time")
	assert.Nil(t, b.ClosedAt)
}

func TestMoveOrder_Errors(t *testing.T) {
	l, _ := testLedger(t)

	assert.ErrorIs(t, l.MoveOrder("nope", "B"), ErrTableNotFound)

	l.Open("A")
	_, err := l.AddLine("A", product("p_1", 1))
	require.NoError(t, err)
	assert.ErrorIs(t, l.MoveOrder("A", "A"), ErrSameTable)

	l.Open("B")
	_, err = l.AddLine("B", product("p_2", 1))
	require.NoError(t, err)

	err = l.MoveOrder("A", "B")
	assert.ErrorIs(t, err, ErrTargetOccupied)

	a, _ := l.Table("A")
	assert.Equal(t, StatusOrdering, a.Status, "failed move changes nothing")
	assert.Len(t, l.Lines("A"), 1)
	assert.Len(t, l.Lines("B"), 1)
}

func TestMergeOrder_SumsMatchingLines(t *testing.T) {
	l, _ := testLedger(t)
	l.Open("A")
	l.Open("B")
	_, err := l.AddLine("A", product("p_1", 2))
	require.NoError(t, err)
	_, err = l.AddLine("B", product("p_1", 3))
	require.NoError(t, err)

	require.NoError(t, l.MergeOrder("A", "B"))

	lines := l.Lines("B")
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Empty(t, l.Lines("A"))

	a, _ := l.Table("A")
	assert.Equal(t, StatusClosed, a.Status)
	assert.NotNil(t, a.ClosedAt)
}

func TestMergeOrder_DistinctLinesAppend(t *testing.T) {
	l, _ := testLedger(t)
	l.Open("A")
	l.Open("B")
	_, err := l.AddLine("A", product("p_2", 4))
	require.NoError(t, err)
	_, err = l.AddLine("A", AddLineInput{ProductID: "p_1", Quantity: 1, AddedBy: AddedByOwner})
	require.NoError(t, err)
	_, err = l.AddLine("B", product("p_1", 1))
	require.NoError(t, err)

	total := func(lines []OrderLine) int {
		n := 0
		for _, line := range lines {
			n += line.Quantity
		}
		return n
	}
	want := total(l.Lines("A")) + total(l.Lines("B"))

	require.NoError(t, l.MergeOrder("A", "B"))

	lines := l.Lines("B")
	assert.Len(t, lines, 3, "owner and guest lines of the same product stay apart")
	assert.Equal(t, want, total(lines), "no quantity lost")
	assert.Equal(t, "Draft beer", lines[0].Name)
	assert.Equal(t, "Highball", lines[1].Name)
}

func TestMergeOrder_Destinations(t *testing.T) {
	l, now := testLedger(t)
	opened := l.Open("A").OpenedAt
	_, err := l.AddLine("A", product("p_1", 1))
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	require.NoError(t, l.MergeOrder("A", "NEW"))
	dst, ok := l.Table("NEW")
	require.True(t, ok)
	assert.Equal(t, StatusOrdering, dst.Status)
	assert.Equal(t, opened, dst.OpenedAt)
	assert.Len(t, l.Lines("NEW"), 1)

	// A closed destination with a stale order starts over.
	l.Open("C")
	_, err = l.AddLine("C", product("p_3", 9))
	require.NoError(t, err)
	_, err = l.Close("C")
	require.NoError(t, err)
	l.Open("D")
	_, err = l.AddLine("D", product("p_2", 1))
	require.NoError(t, err)

	require.NoError(t, l.MergeOrder("D", "C"))
	c, _ := l.Table("C")
	assert.Equal(t, StatusOrdering, c.Status)
	assert.Nil(t, c.ClosedAt)
	lines := l.Lines("C")
	require.Len(t, lines, 1)
	assert.Equal(t, "Highball", lines[0].Name)

	// A precheck destination goes back to ordering.
	l.Open("E")
	_, err = l.Precheck("E")
	require.NoError(t, err)
	l.Open("F")
	require.NoError(t, l.MergeOrder("F", "E"))
	e, _ := l.Table("E")
	assert.Equal(t, StatusOrdering, e.Status)
}

func TestMergeOrder_Errors(t *testing.T) {
	l, _ := testLedger(t)
	assert.ErrorIs(t, l.MergeOrder("nope", "B"), ErrTableNotFound)
	l.Open("A")
	assert.ErrorIs(t, l.MergeOrder("A", "A"), ErrSameTable)
}

func TestMarkPrinted(t *testing.T) {
	l, _ := testLedger(t)
	line, err := l.AddLine("T1", product("p_1", 3))
	require.NoError(t, err)

	assert.Equal(t, 1, l.MarkPrinted("T1", map[string]int{line.LineID: 2, "gone": 1}))
	assert.Equal(t, 1, l.Lines("T1")[0].Unprinted())

	assert.Equal(t, 1, l.MarkPrinted("T1", map[string]int{line.LineID: 5}))
	assert.Equal(t, 3, l.Lines("T1")[0].PrintedQty, "printed never exceeds quantity")
	assert.Zero(t, l.MarkPrinted("T1", map[string]int{line.LineID: 1}))

	_, err = l.UpdateLineQty("T1", line.LineID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, l.Lines("T1")[0].PrintedQty)

	assert.Zero(t, l.MarkPrinted("T9", map[string]int{line.LineID: 1}))
}

func TestReleasePrinted(t *testing.T) {
	l, _ := testLedger(t)
	line, err := l.AddLine("T1", product("p_1", 3))
	require.NoError(t, err)
	l.MarkPrinted("T1", map[string]int{line.LineID: 3})

	require.NoError(t, l.MoveOrder("T1", "T2"))
	assert.Equal(t, 1, l.ReleasePrinted(map[string]int{line.LineID: 2, "gone": 1}))
	assert.Equal(t, 1, l.Lines("T2")[0].PrintedQty)

	assert.Equal(t, 1, l.ReleasePrinted(map[string]int{line.LineID: 5}))
	assert.Zero(t, l.Lines("T2")[0].PrintedQty, "printed never goes below zero")
	assert.Zero(t, l.ReleasePrinted(map[string]int{line.LineID: 1}))
}

func TestLinesAreCopies(t *testing.T) {
	l, _ := testLedger(t)
	_, err := l.AddLine("T1", product("p_1", 1))
	require.NoError(t, err)

	lines := l.Lines("T1")
	lines[0].Quantity = 99
	*lines[0].ProductID = "hacked"

	fresh := l.Lines("T1")
	assert.Equal(t, 1, fresh[0].Quantity)
	assert.Equal(t, "p_1", *fresh[0].ProductID)
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusOrdering, StatusPrecheck))
	assert.True(t, CanTransition(StatusPrecheck, StatusClosed))
	assert.True(t, CanTransition(StatusClosed, StatusOrdering))
	assert.False(t, CanTransition(StatusPrecheck, StatusOrdering))
	assert.False(t, CanTransition(StatusClosed, StatusPrecheck))
	assert.False(t, CanTransition("bogus", StatusClosed))
}
