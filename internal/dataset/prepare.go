package dataset

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
)

// DefaultSampleSize is how many rows of each class a prepared table keeps.
const DefaultSampleSize = 100

var naValues = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NULL": {}, "null": {}, "NaN": {}, "nan": {}, "-nan": {}, "None": {}, "#N/A": {},
}

// ParseCell converts a raw text cell into nil, a float64 or a trimmed string.
func ParseCell(raw string) any {
	value := strings.TrimSpace(raw)
	if _, missing := naValues[value]; missing {
		return nil
	}
	if f, ok := parseFloat(value); ok {
		return f
	}
	return value
}

// Prepare standardizes column names, drops incomplete, infinite and duplicate rows,
// keeps EvaluationColumns and samples up to sample BENIGN rows followed by up to
// sample SSH-Patator rows. The result is reindexed from zero.
func Prepare(raw Table, sample int, logger *slog.Logger) (Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if sample <= 0 {
		sample = DefaultSampleSize
	}

	table := standardize(raw)
	if !table.HasColumn(LabelColumn) {
		return Table{}, fmt.Errorf("dataset has no %s column", LabelColumn)
	}
	before := table.Len()
	table = clean(table)
	logger.Info("dataset cleaned",
		slog.Int("rows_before", before),
		slog.Int("rows_after", table.Len()),
	)

	table = table.Select(EvaluationColumns)
	if missing := len(EvaluationColumns) - len(table.Columns); missing > 0 {
		logger.Warn("evaluation columns missing from dataset", slog.Int("missing", missing))
	}

	var benign, attack []Row
	for _, row := range table.Rows {
		label, _ := row.Values[LabelColumn].(string)
		switch {
		case label == BenignLabel && len(benign) < sample:
			benign = append(benign, row)
		case label == AttackLabel && len(attack) < sample:
			attack = append(attack, row)
		}
	}
	logger.Info("dataset sampled", slog.Int("benign", len(benign)), slog.Int("attack", len(attack)))

	out := Table{Columns: table.Columns, Rows: append(benign, attack...)}
	return out.Reindex(), nil
}

func standardize(t Table) Table {
	columns := make([]string, len(t.Columns))
	rename := make(map[string]string, len(t.Columns))
	for i, c := range t.Columns {
		columns[i] = StandardizeColumn(c)
		rename[c] = columns[i]
	}

	rows := make([]Row, len(t.Rows))
	for i, row := range t.Rows {
		values := make(map[string]any, len(row.Values))
		for k, v := range row.Values {
			name, ok := rename[k]
			if !ok {
				name = StandardizeColumn(k)
			}
			if name == LabelColumn {
				if s, isString := v.(string); isString {
					v = strings.TrimSpace(s)
				} else if v != nil {
					v = strings.TrimSpace(fmt.Sprint(v))
				}
			}
			values[name] = v
		}
		rows[i] = Row{Index: row.Index, Values: values}
	}
	return Table{Columns: columns, Rows: rows}
}

func clean(t Table) Table {
	seen := make(map[string]struct{}, len(t.Rows))
	kept := make([]Row, 0, len(t.Rows))

rows:
	for _, row := range t.Rows {
		var key strings.Builder
		for _, c := range t.Columns {
			v, ok := row.Values[c]
			if !ok || v == nil {
				continue rows
			}
			if f, isFloat := v.(float64); isFloat && (math.IsNaN(f) || math.IsInf(f, 0)) {
				continue rows
			}
			key.WriteString(formatValue(v))
			key.WriteByte(0x1f)
		}
		if _, dup := seen[key.String()]; dup {
			continue
		}
		seen[key.String()] = struct{}{}
		kept = append(kept, row)
	}
	return Table{Columns: t.Columns, Rows: kept}
}
