package dataset

import (
	"context"

	"github.com/brianvoe/gofakeit/v7"
)

// SyntheticProvider fabricates a balanced, labelled flow table for smoke runs.
// Attack rows follow the shape of SSH credential-guessing flows; benign rows are
// spread over common service ports.
type SyntheticProvider struct {
	seed  uint64
	count int
}

// NewSyntheticProvider produces count rows of each class from a fixed seed.
func NewSyntheticProvider(seed uint64, count int) *SyntheticProvider {
	if count <= 0 {
		count = DefaultSampleSize
	}
	return &SyntheticProvider{seed: seed, count: count}
}

// Load implements Provider.
func (p *SyntheticProvider) Load(ctx context.Context) (Table, error) {
	faker := gofakeit.New(p.seed)
	table := Table{Columns: append([]string(nil), EvaluationColumns...)}

	for i := 0; i < p.count; i++ {
		if err := ctx.Err(); err != nil {
			return Table{}, err
		}
		table.Rows = append(table.Rows, Row{Values: benignFlow(faker)})
	}
	for i := 0; i < p.count; i++ {
		if err := ctx.Err(); err != nil {
			return Table{}, err
		}
		table.Rows = append(table.Rows, Row{Values: attackFlow(faker)})
	}
	return table.Reindex(), nil
}

var benignPorts = []int{53, 80, 123, 443, 445, 3306, 8080}

func benignFlow(f *gofakeit.Faker) map[string]any {
	port := benignPorts[f.Number(0, len(benignPorts)-1)]
	durationMicros := float64(f.Number(20_000, 120_000_000))
	fwd := float64(f.Number(1, 400))
	bwd := float64(f.Number(0, 400))
	fwdMean := f.Float64Range(0, 1400)
	bwdMean := f.Float64Range(0, 1400)
	return flowValues(port, durationMicros, fwd, bwd, fwdMean, bwdMean, float64(f.Number(0, 1)), float64(f.Number(0, 1)), float64(f.Number(-1, 65535)), BenignLabel)
}

func attackFlow(f *gofakeit.Faker) map[string]any {
	durationMicros := float64(f.Number(200_000, 4_500_000))
	fwd := float64(f.Number(6, 14))
	bwd := float64(f.Number(6, 14))
	fwdMean := f.Float64Range(60, 140)
	bwdMean := f.Float64Range(80, 220)
	return flowValues(22, durationMicros, fwd, bwd, fwdMean, bwdMean, 0, float64(f.Number(0, 1)), float64(f.RandomInt([]int{29200, 64240})), AttackLabel)
}

func flowValues(port int, durationMicros, fwd, bwd, fwdMean, bwdMean, syn, ack, initWin float64, label string) map[string]any {
	seconds := durationMicros / 1e6
	bytes := fwd*fwdMean + bwd*bwdMean
	return map[string]any{
		"Destination_Port":       float64(port),
		"Flow_Duration":          durationMicros,
		"Total_Fwd_Packets":      fwd,
		"Total_Backward_Packets": bwd,
		"Flow_Bytes/s":           bytes / seconds,
		"Flow_Packets/s":         (fwd + bwd) / seconds,
		"Fwd_Packet_Length_Mean": fwdMean,
		"Bwd_Packet_Length_Mean": bwdMean,
		"SYN_Flag_Count":         syn,
		"ACK_Flag_Count":         ack,
		"Init_Win_bytes_forward": initWin,
		LabelColumn:              label,
	}
}
