package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// EmptySegment is the serialized form of a segment without rows.
const EmptySegment = "The dataset segment being processed is empty."

const (
	maxValueLen  = 100
	truncatedLen = 97
)

// Serialize renders t as a header line followed by one line per row:
//
//	Columns: a, b
//	Row 7: a: 1, b: NULL
//
// Rows carry their original index. Missing values print as NULL and strings longer
// than 100 characters are cut to 97 followed by "...".
func Serialize(t Table) string {
	if len(t.Rows) == 0 {
		return EmptySegment
	}

	var b strings.Builder
	b.WriteString("Columns: ")
	b.WriteString(strings.Join(t.Columns, ", "))

	for _, row := range t.Rows {
		b.WriteString("\nRow ")
		b.WriteString(strconv.Itoa(row.Index))
		b.WriteString(": ")
		for i, col := range t.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(col)
			b.WriteString(": ")
			b.WriteString(formatValue(row.Values[col]))
		}
	}
	return b.String()
}

func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return "NULL"
	case string:
		if r := []rune(value); len(r) > maxValueLen {
			return string(r[:truncatedLen]) + "..."
		}
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	default:
		return fmt.Sprint(value)
	}
}
