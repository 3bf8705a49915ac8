package dataset

import (
	"context"
	"regexp"
	"strings"
)

const (
	// LabelColumn carries the ground-truth class of a flow.
	LabelColumn = "Label"
	// AttackLabel marks SSH brute-force flows.
	AttackLabel = "SSH-Patator"
	// BenignLabel marks normal traffic.
	BenignLabel = "BENIGN"
)

// EvaluationColumns are the flow features kept for classification, plus the label.
var EvaluationColumns = []string{
	"Destination_Port",
	"Flow_Duration",
	"Total_Fwd_Packets",
	"Total_Backward_Packets",
	"Flow_Bytes/s",
	"Flow_Packets/s",
	"Fwd_Packet_Length_Mean",
	"Bwd_Packet_Length_Mean",
	"SYN_Flag_Count",
	"ACK_Flag_Count",
	"Init_Win_bytes_forward",
	LabelColumn,
}

// Provider loads a cleaned, labelled flow table.
type Provider interface {
	Load(ctx context.Context) (Table, error)
}

// GroundTruth reads the label of row. ok is false when the row carries no label.
func GroundTruth(row Row) (malicious bool, ok bool) {
	raw, present := row.Values[LabelColumn]
	if !present || raw == nil {
		return false, false
	}
	label, isString := raw.(string)
	if !isString {
		return false, false
	}
	return strings.TrimSpace(label) == AttackLabel, true
}

// Unlabel strips the label column so it never reaches a classifier.
func Unlabel(t Table) Table {
	return t.WithoutColumn(LabelColumn)
}

var nonColumnChars = regexp.MustCompile(`[^A-Za-z0-9_/]`)

// StandardizeColumn trims name, turns spaces into underscores and drops other punctuation.
func StandardizeColumn(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, " ", "_")
	return nonColumnChars.ReplaceAllString(name, "")
}
