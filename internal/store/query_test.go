package store

import (
	"reflect"
	"testing"
)

func TestSelectIDs(t *testing.T) {
	tests := []struct {
		name       string
		conds      []Cond
		wantSQL    string
		wantParams []any
	}{
		{
			name:       "no conditions",
			wantSQL:    "SELECT work_order_id FROM receipts ORDER BY seq ASC, work_order_id COLLATE BINARY ASC",
			wantParams: []any{},
		},
		{
			name:       "conjunction",
			conds:      []Cond{{"worker_id", "w"}, {"receipt_create_status", 1}},
			wantSQL:    "SELECT work_order_id FROM receipts WHERE worker_id = ? AND receipt_create_status = ? ORDER BY seq ASC, work_order_id COLLATE BINARY ASC",
			wantParams: []any{"w", 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := selectIDs("receipts", "work_order_id", tt.conds)
			if err != nil {
				t.Fatalf("selectIDs() failed: %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(params, tt.wantParams) {
				t.Errorf("params = %v, want %v", params, tt.wantParams)
			}
		})
	}
}

func TestSelectIDs_Errors(t *testing.T) {
	if _, _, err := selectIDs("", "id", nil); err == nil {
		t.Error("empty table should fail")
	}
	if _, _, err := selectIDs("workers", "id", []Cond{{"", 1}}); err == nil {
		t.Error("empty column should fail")
	}
}
