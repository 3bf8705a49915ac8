package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/miradorstack/mirador-bfeval/internal/backend"
	"github.com/miradorstack/mirador-bfeval/internal/metrics"
	"github.com/miradorstack/mirador-bfeval/internal/models"
	"github.com/miradorstack/mirador-bfeval/internal/retry"
	"github.com/miradorstack/mirador-bfeval/internal/utils"
)

// Safe defaults substituted when a stage cannot produce an answer.
const (
	FallbackDescription = "Failed to extract pattern."
	FallbackLogsReason  = "Failed to analyze logs - using default safe classification."
	FallbackFlowReason  = "Failed to analyze flow - using default safe classification."
)

// FallbackMetadata is returned by the metadata stage after it gives up.
func FallbackMetadata() models.LogsMetadata {
	return models.LogsMetadata{Duration: "None", Attacker: "None", Service: models.ServiceOther}
}

// FallbackLogsVerdict is the non-alerting log verdict.
func FallbackLogsVerdict() models.LogsVerdict {
	return models.LogsVerdict{Reason: FallbackLogsReason}
}

// FallbackFlowVerdict is the non-alerting flow verdict.
func FallbackFlowVerdict() models.FlowVerdict {
	return models.FlowVerdict{Reason: FallbackFlowReason}
}

// Pipeline classifies one serialized unit. Classify never fails: every stage resolves to
// an answer or to its safe default.
type Pipeline interface {
	Mode() models.Mode
	Classify(ctx context.Context, input string) models.Verdict
}

// Build returns the pipeline variant for mode.
func Build(mode models.Mode, b backend.Backend, policy retry.Policy, logger *slog.Logger) (Pipeline, error) {
	if b == nil {
		return nil, utils.NewAppError("engine.Build", "backend is required", utils.ErrInvalidArgument)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := stages{backend: b, policy: policy, logger: logger}
	switch mode {
	case models.ModeLogs:
		return &LogPipeline{stages: s}, nil
	case models.ModeFlows:
		return &FlowPipeline{stages: s}, nil
	default:
		return nil, utils.NewAppError("engine.Build", fmt.Sprintf("unknown mode %q", mode), utils.ErrInvalidArgument)
	}
}

type stages struct {
	backend backend.Backend
	policy  retry.Policy
	logger  *slog.Logger
}

// invoke runs one stage under the retry policy and decodes a schema-valid answer into T.
func invoke[T any](ctx context.Context, s stages, task backend.Task, inputs map[string]string, fallback T) (T, bool) {
	out, err := retry.Do(ctx, s.logger, s.policy, string(task), func() (T, error) {
		var v T
		raw, err := s.backend.Generate(ctx, backend.Request{Task: task, Inputs: inputs})
		if err != nil {
			return v, err
		}
		if err := backend.Validate(task, raw); err != nil {
			return v, err
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return v, fmt.Errorf("decode %s answer: %w", task, err)
		}
		return v, nil
	})
	if err != nil {
		metrics.ObserveStageFallback(string(task))
		s.logger.Error("stage failed, using safe default",
			slog.String("stage", string(task)),
			slog.String("backend", s.backend.Name()),
			slog.Any("error", err),
		)
		return fallback, false
	}
	return out, true
}

func validInput(s stages, pipeline models.Mode, input string) bool {
	if strings.TrimSpace(input) != "" {
		return true
	}
	metrics.ObserveValidationFailure(string(pipeline))
	s.logger.Warn("input validation failed", slog.String("pipeline", string(pipeline)), slog.String("reason", "empty input"))
	return false
}

// LogsAnalysis carries every stage output of one log batch.
type LogsAnalysis struct {
	Metadata    models.LogsMetadata
	Description models.LogsDescription
	Verdict     models.LogsVerdict
	Fallbacks   []backend.Task
}

// LogPipeline runs metadata extraction, description and the final verdict.
type LogPipeline struct {
	stages stages
}

// Mode implements Pipeline.
func (p *LogPipeline) Mode() models.Mode { return models.ModeLogs }

// Classify implements Pipeline.
func (p *LogPipeline) Classify(ctx context.Context, input string) models.Verdict {
	return p.Analyze(ctx, input).Verdict
}

// Analyze runs the three stages and keeps the intermediate results.
func (p *LogPipeline) Analyze(ctx context.Context, input string) LogsAnalysis {
	if !validInput(p.stages, models.ModeLogs, input) {
		return LogsAnalysis{
			Metadata:    FallbackMetadata(),
			Description: models.LogsDescription{Activity: FallbackDescription},
			Verdict:     FallbackLogsVerdict(),
			Fallbacks:   []backend.Task{backend.TaskLogsVerdict},
		}
	}

	var a LogsAnalysis
	var ok bool
	note := func(task backend.Task, ok bool) {
		if !ok {
			a.Fallbacks = append(a.Fallbacks, task)
		}
	}

	a.Metadata, ok = invoke(ctx, p.stages, backend.TaskLogsMetadata, map[string]string{backend.InputText: input}, FallbackMetadata())
	note(backend.TaskLogsMetadata, ok)

	a.Description, ok = invoke(ctx, p.stages, backend.TaskLogsDescription, map[string]string{backend.InputText: input},
		models.LogsDescription{Activity: FallbackDescription})
	note(backend.TaskLogsDescription, ok)

	metadataJSON, _ := json.Marshal(a.Metadata)
	descriptionJSON, _ := json.Marshal(a.Description)
	a.Verdict, ok = invoke(ctx, p.stages, backend.TaskLogsVerdict, map[string]string{
		backend.InputLogs:            input,
		backend.InputLogsMetadata:    string(metadataJSON),
		backend.InputLogsDescription: string(descriptionJSON),
	}, FallbackLogsVerdict())
	note(backend.TaskLogsVerdict, ok)

	p.stages.logger.Debug("log batch analysed",
		slog.String("service", string(a.Metadata.Service)),
		slog.String("attacker", a.Metadata.Attacker),
		slog.Bool("bruteforce", a.Verdict.Bruteforce),
		slog.Bool("system_compromised", a.Verdict.SystemCompromised),
	)
	return a
}

// FlowPipeline runs the single flow verdict stage.
type FlowPipeline struct {
	stages stages
}

// Mode implements Pipeline.
func (p *FlowPipeline) Mode() models.Mode { return models.ModeFlows }

// Classify implements Pipeline.
func (p *FlowPipeline) Classify(ctx context.Context, input string) models.Verdict {
	if !validInput(p.stages, models.ModeFlows, input) {
		return FallbackFlowVerdict()
	}
	v, _ := invoke(ctx, p.stages, backend.TaskFlowVerdict, map[string]string{backend.InputFlowData: input}, FallbackFlowVerdict())
	return v
}
