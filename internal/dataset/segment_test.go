package dataset

import (
	"errors"
	"testing"

	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

func numberedTable(n int) Table {
	t := Table{Columns: []string{"id"}}
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, Row{Index: i * 10, Values: map[string]any{"id": float64(i)}})
	}
	return t
}

func TestSplitReconstructsRows(t *testing.T) {
	for _, tc := range []struct{ n, size, want int }{
		{n: 10, size: 3, want: 4},
		{n: 9, size: 3, want: 3},
		{n: 1, size: 200000, want: 1},
		{n: 5, size: 1, want: 5},
	} {
		table := numberedTable(tc.n)
		segments, err := Split(table, tc.size)
		if err != nil {
			t.Fatalf("split %d/%d: %v", tc.n, tc.size, err)
		}
		if len(segments) != tc.want {
			t.Fatalf("expected %d segments for n=%d size=%d, got %d", tc.want, tc.n, tc.size, len(segments))
		}

		var rebuilt []Row
		for i, seg := range segments {
			if seg.Len() > tc.size {
				t.Fatalf("segment %d exceeds max size: %d", i, seg.Len())
			}
			rebuilt = append(rebuilt, seg.Rows...)
		}
		if len(rebuilt) != tc.n {
			t.Fatalf("expected %d rows after concatenation, got %d", tc.n, len(rebuilt))
		}
		for i, row := range rebuilt {
			if row.Index != table.Rows[i].Index {
				t.Fatalf("row %d lost its identity: got index %d want %d", i, row.Index, table.Rows[i].Index)
			}
		}
	}
}

func TestSplitEmptyDatasetYieldsOneSegment(t *testing.T) {
	segments, err := Split(Table{Columns: []string{"a"}}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0].Len() != 0 {
		t.Fatalf("expected exactly one empty segment, got %+v", segments)
	}
}

func TestSplitRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -3} {
		_, err := Split(numberedTable(3), size)
		if !errors.Is(err, utils.ErrInvalidArgument) {
			t.Fatalf("expected invalid argument for size %d, got %v", size, err)
		}
	}
}

func TestSplitSegmentsDoNotAlias(t *testing.T) {
	table := numberedTable(4)
	segments, err := Split(table, 2)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	segments[0].Rows[0] = Row{Index: 999}
	if table.Rows[0].Index != 0 {
		t.Fatalf("segment mutation leaked into source table")
	}
}
