package httpx

import (
	"encoding/json"
	"testing"

	"github.com/ariefcatur/go-table-orders/internal/tables"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		raw  string
		qty  int
		set  bool
		fail bool
	}{
		{raw: `3`, qty: 3, set: true},
		{raw: `"4"`, qty: 4, set: true},
		{raw: `" 5 "`, qty: 5, set: true},
		{raw: `2.5`, qty: 0, set: true},
		{raw: `null`, qty: 7},
		{raw: `""`, qty: 7},
		{raw: `"x"`, fail: true},
		{raw: `true`, fail: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var n number
			err := json.Unmarshal([]byte(tt.raw), &n)
			if tt.fail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.set, n.set)
			assert.Equal(t, tt.qty, n.qty(7))
		})
	}
}

func TestNormalizeOrder_ItemSources(t *testing.T) {
	for name, body := range map[string]string{
		"items":       `{"tableId":"T1","items":[{"name":"A","price":100}]}`,
		"lines":       `{"tableId":"T1","lines":[{"name":"A","price":100}]}`,
		"order.lines": `{"table":"T1","order":{"lines":[{"name":"A","price":100}]}}`,
	} {
		t.Run(name, func(t *testing.T) {
			tableID, ins, err := normalizeOrder([]byte(body))
			require.NoError(t, err)
			assert.Equal(t, "T1", tableID)
			require.Len(t, ins, 1)
			assert.Equal(t, tables.AddLineInput{Name: "A", UnitPrice: 100, Quantity: 1, AddedBy: tables.AddedByGuest}, ins[0])
		})
	}
}

func TestNormalizeOrder_Rejects(t *testing.T) {
	for _, body := range []string{
		`not json`,
		`{"items":[{"name":"A"}]}`,
		`{"tableId":"T1"}`,
		`{"tableId":"T1","items":[]}`,
		`{"tableId":"T1","items":[{"qty":"many"}]}`,
	} {
		_, _, err := normalizeOrder([]byte(body))
		assert.ErrorIs(t, err, errBadPayload, body)
	}
}

func TestItemPayload_Names(t *testing.T) {
	s := func(v string) *string { return &v }
	assert.Equal(t, "Given", itemPayload{Name: s("Given"), Brand: "B", Label: s("L")}.name())
	assert.Equal(t, "B / L", itemPayload{Brand: "B", Label: s("L")}.name())
	assert.Equal(t, "L", itemPayload{Label: s("L")}.name())
	assert.Equal(t, "unknown", itemPayload{}.name())

	assert.Equal(t, "bar", itemPayload{PrintGroup: s("bar"), PrintTarget: s("x")}.printGroup())
	assert.Equal(t, "x", itemPayload{PrintTarget: s("x")}.printGroup())
}
