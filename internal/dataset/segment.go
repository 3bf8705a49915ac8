package dataset

import (
	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

// DefaultSegmentSize bounds segments when the caller has no preference.
const DefaultSegmentSize = 200000

// Split cuts t into ceil(n/maxSize) contiguous segments in row order. Each segment
// owns its row slice. An empty table yields a single empty segment.
func Split(t Table, maxSize int) ([]Table, error) {
	if maxSize <= 0 {
		return nil, utils.NewAppError("dataset.Split", "max segment size must be positive", utils.ErrInvalidArgument)
	}
	if len(t.Rows) == 0 {
		return []Table{{Columns: t.Columns}}, nil
	}

	segments := make([]Table, 0, (len(t.Rows)+maxSize-1)/maxSize)
	for start := 0; start < len(t.Rows); start += maxSize {
		end := min(start+maxSize, len(t.Rows))
		segments = append(segments, Table{
			Columns: t.Columns,
			Rows:    append([]Row(nil), t.Rows[start:end]...),
		})
	}
	return segments, nil
}
