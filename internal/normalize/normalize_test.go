package normalize

import (
	"math"
	"testing"

	"github.com/kibbyd/integration-layer/go-coordinator/internal/config"
	"github.com/kibbyd/integration-layer/go-coordinator/internal/fault"
)

func record(t *testing.T) RawRecord {
	t.Helper()
	return RawRecord{
		{Name: "x", Values: []interface{}{1.0, 2.0, 3.0}},
		{Name: "y", Values: []interface{}{10.0, 20.0, 30.0}},
	}
}

func TestNormalizeShape(t *testing.T) {
	n := New(config.DataConfig{})

	table, err := n.Normalize(record(t))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(table.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(table.Columns))
	}
	if table.Rows != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Rows)
	}
	// Column order matches input field order
	if table.Columns[0].Name != "x" || table.Columns[1].Name != "y" {
		t.Errorf("column order %v, want [x y]", table.ColumnNames())
	}
}

func TestNormalizeIdentityWhenFlagOff(t *testing.T) {
	n := New(config.DataConfig{Normalize: false})

	table, err := n.Normalize(record(t))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	x, _ := table.Column("x")
	want := []float64{1, 2, 3}
	for i, v := range x.Floats {
		if v != want[i] {
			t.Errorf("x[%d] = %v, want %v (identity)", i, v, want[i])
		}
	}
}

func TestNormalizeMinMax(t *testing.T) {
	n := New(config.DataConfig{Normalize: true, Method: "minmax"})

	table, err := n.Normalize(record(t))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	want := []float64{0, 0.5, 1}
	for _, name := range []string{"x", "y"} {
		col, _ := table.Column(name)
		for i, v := range col.Floats {
			if math.Abs(v-want[i]) > 1e-12 {
				t.Errorf("%s[%d] = %v, want %v", name, i, v, want[i])
			}
		}
	}
}

func TestNormalizeZScore(t *testing.T) {
	n := New(config.DataConfig{Normalize: true, Method: "zscore"})

	table, err := n.Normalize(RawRecord{
		{Name: "x", Values: []interface{}{1.0, 2.0, 3.0}},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	col, _ := table.Column("x")
	var sum float64
	for _, v := range col.Floats {
		sum += v
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("z-scored column should have zero mean, sum=%v", sum)
	}
	if col.Floats[0] >= 0 || col.Floats[2] <= 0 {
		t.Errorf("expected symmetric spread, got %v", col.Floats)
	}
}

func TestNormalizeConstantColumn(t *testing.T) {
	for _, method := range []string{"minmax", "zscore"} {
		n := New(config.DataConfig{Normalize: true, Method: method})
		table, err := n.Normalize(RawRecord{
			{Name: "c", Values: []interface{}{5.0, 5.0, 5.0}},
		})
		if err != nil {
			t.Fatalf("%s: %v", method, err)
		}
		col, _ := table.Column("c")
		for i, v := range col.Floats {
			if v != 0 {
				t.Errorf("%s: c[%d] = %v, want 0 for constant column", method, i, v)
			}
		}
	}
}

func TestNormalizeRaggedInput(t *testing.T) {
	n := New(config.DataConfig{})

	_, err := n.Normalize(RawRecord{
		{Name: "x", Values: []interface{}{1.0, 2.0}},
		{Name: "y", Values: []interface{}{1.0, 2.0, 3.0}},
	})
	if err == nil {
		t.Fatal("expected error for ragged input")
	}
	if !fault.Is(err, fault.KindNormalization) {
		t.Errorf("expected normalization kind, got %v", err)
	}
	if n.Failures() != 1 {
		t.Errorf("expected 1 recorded failure, got %d", n.Failures())
	}
}

func TestNormalizeTextPassthrough(t *testing.T) {
	n := New(config.DataConfig{Normalize: true, Method: "minmax"})

	table, err := n.Normalize(RawRecord{
		{Name: "x", Values: []interface{}{1.0, 2.0}},
		{Name: "label", Values: []interface{}{"a", "b"}},
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	label, ok := table.Column("label")
	if !ok || label.Kind != KindText {
		t.Fatal("expected text column for label")
	}
	if label.Texts[0] != "a" || label.Texts[1] != "b" {
		t.Errorf("text column changed: %v", label.Texts)
	}
}

func TestNormalizeUnconvertibleValue(t *testing.T) {
	n := New(config.DataConfig{})

	_, err := n.Normalize(RawRecord{
		{Name: "x", Values: []interface{}{map[string]int{"a": 1}}},
	})
	if err == nil {
		t.Fatal("expected error for un-convertible value")
	}
	if !fault.Is(err, fault.KindNormalization) {
		t.Errorf("expected normalization kind, got %v", err)
	}
}

func TestRecoverClearsFailureState(t *testing.T) {
	n := New(config.DataConfig{})

	n.Normalize(RawRecord{{Name: "x", Values: []interface{}{nil}}})
	if n.Failures() != 1 {
		t.Fatalf("expected 1 failure, got %d", n.Failures())
	}

	if err := n.Recover(); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	if n.Failures() != 0 {
		t.Errorf("expected failures reset, got %d", n.Failures())
	}
	if n.Recoveries() != 1 {
		t.Errorf("expected 1 recovery, got %d", n.Recoveries())
	}
}

func TestRecordFromMapSortsFields(t *testing.T) {
	rec := RecordFromMap(map[string][]interface{}{
		"zeta": {1.0},
		"alfa": {2.0},
	})
	names := rec.FieldNames()
	if names[0] != "alfa" || names[1] != "zeta" {
		t.Errorf("expected sorted order, got %v", names)
	}
}

func TestNormalizeEmptyRecord(t *testing.T) {
	n := New(config.DataConfig{Normalize: true})
	table, err := n.Normalize(nil)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(table.Columns) != 0 || table.Rows != 0 {
		t.Errorf("expected empty table, got %d cols %d rows", len(table.Columns), table.Rows)
	}
}
