package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-bfeval/internal/extractors"
	"github.com/miradorstack/mirador-bfeval/internal/models"
)

// RuleBackend answers every task offline by applying the guardian decision rules to
// features extracted from the inputs.
type RuleBackend struct {
	rules  RuleSet
	logger *slog.Logger
}

// RuleSet holds the thresholds of both decision contracts.
type RuleSet struct {
	Logs  LogRules  `yaml:"logs"`
	Flows FlowRules `yaml:"flows"`
}

// LogRules tune the four log indicators; a batch is brute force when MinIndicators hold.
type LogRules struct {
	FailedBeforeSuccess int           `yaml:"failedBeforeSuccess"`
	BurstAttempts       int           `yaml:"burstAttempts"`
	BurstWindow         time.Duration `yaml:"burstWindow"`
	ShortSession        time.Duration `yaml:"shortSession"`
	GenericUsers        []string      `yaml:"genericUsers"`
	MinIndicators       int           `yaml:"minIndicators"`
}

// FlowRules tune the six flow indicators. Range bounds are exclusive.
type FlowRules struct {
	Protocol        string        `yaml:"protocol"`
	MinSourcePort   float64       `yaml:"minSourcePort"`
	DestinationPort float64       `yaml:"destinationPort"`
	Packets         Range         `yaml:"packets"`
	Bytes           Range         `yaml:"bytes"`
	MaxDuration     time.Duration `yaml:"maxDuration"`
	MinIndicators   int           `yaml:"minIndicators"`
}

// Range is an open interval.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (r Range) contains(v float64) bool { return v > r.Min && v < r.Max }

// DefaultRuleSet mirrors the guardian prompts: 2 of 4 log indicators, 4 of 6 flow indicators.
func DefaultRuleSet() RuleSet {
	return RuleSet{
		Logs: LogRules{
			FailedBeforeSuccess: 3,
			BurstAttempts:       5,
			BurstWindow:         time.Minute,
			ShortSession:        time.Minute,
			GenericUsers:        []string{"root", "admin"},
			MinIndicators:       2,
		},
		Flows: FlowRules{
			Protocol:        "TCP",
			MinSourcePort:   1024,
			DestinationPort: 22,
			Packets:         Range{Min: 10, Max: 30},
			Bytes:           Range{Min: 1400, Max: 5000},
			MaxDuration:     5 * time.Second,
			MinIndicators:   4,
		},
	}
}

// NewRuleBackend loads thresholds from path. An empty or missing path yields the defaults;
// fields absent from the file keep their default values.
func NewRuleBackend(path string, logger *slog.Logger) (*RuleBackend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	rules := DefaultRuleSet()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("rule file not found, using defaults", slog.String("path", path))
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, &rules); err != nil {
				return nil, fmt.Errorf("parse rule file %s: %w", path, err)
			}
		}
	}
	return &RuleBackend{rules: rules, logger: logger}, nil
}

// Rules returns the active thresholds.
func (b *RuleBackend) Rules() RuleSet { return b.rules }

// Name implements Backend.
func (b *RuleBackend) Name() string { return "rules" }

// Generate implements Backend.
func (b *RuleBackend) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out any
	switch req.Task {
	case TaskLogsMetadata:
		out = b.metadata(req.Inputs[InputText])
	case TaskLogsDescription:
		out = b.description(req.Inputs[InputText])
	case TaskLogsVerdict:
		out = b.logsVerdict(req.Inputs[InputLogs])
	case TaskFlowVerdict:
		out = b.flowVerdict(req.Inputs[InputFlowData])
	default:
		return nil, fmt.Errorf("unknown task %q", req.Task)
	}
	return json.Marshal(out)
}

func (b *RuleBackend) summarize(logs string) extractors.AuthSummary {
	return extractors.Summarize(extractors.ParseAuthLog(logs), b.rules.Logs.BurstWindow)
}

func (b *RuleBackend) metadata(logs string) models.LogsMetadata {
	s := b.summarize(logs)
	md := models.LogsMetadata{Duration: "None", Attacker: "None", Service: s.Service}
	if s.Failed > 0 {
		md.Duration = extractors.FormatISODuration(s.SuspiciousDuration())
	}
	if s.Attacker != "" {
		md.Attacker = s.Attacker
	}
	return md
}

func (b *RuleBackend) description(logs string) models.LogsDescription {
	s := b.summarize(logs)

	users := "no identifiable users"
	if len(s.Users) > 0 {
		users = fmt.Sprintf("%d users (%s)", len(s.Users), strings.Join(s.Users, ", "))
	}
	first := fmt.Sprintf("The logs record %s activity involving %s.", s.Service, users)

	second := "There are 0 failed logins."
	if s.Failed > 0 {
		second = fmt.Sprintf("There are %d failed logins spanning %s, with at most %d inside %s.",
			s.Failed, s.LastFailure.Sub(s.FirstFailure), s.MaxBurst, b.rules.Logs.BurstWindow)
		if s.Attacker != "" {
			second += fmt.Sprintf(" The most active source is %s.", s.Attacker)
		}
	}

	third := "There are 0 successful logins."
	if s.Succeeded > 0 {
		third = fmt.Sprintf("There are %d successful logins.", s.Succeeded)
		if s.SuccessAfterFailure {
			third += " A successful login follows the failed attempts."
		}
		if s.CompletedSessions > 0 {
			third += fmt.Sprintf(" %d sessions closed, the shortest after %s.", s.CompletedSessions, s.ShortestSession)
		}
	}
	return models.LogsDescription{Activity: first + "\n\n" + second + "\n\n" + third}
}

func (b *RuleBackend) logsVerdict(logs string) models.LogsVerdict {
	r := b.rules.Logs
	s := b.summarize(logs)

	var hits []string
	if s.SuccessAfterFailure && s.Failed >= r.FailedBeforeSuccess {
		hits = append(hits, fmt.Sprintf("%d failed logins followed by a success", s.Failed))
	}
	if s.MaxBurst >= r.BurstAttempts {
		hits = append(hits, fmt.Sprintf("%d attempts within %s", s.MaxBurst, r.BurstWindow))
	}
	if s.CompletedSessions > 0 && s.ShortestSession < r.ShortSession {
		hits = append(hits, fmt.Sprintf("session lasted %s", s.ShortestSession))
	}
	if generic := s.GenericUsers(r.GenericUsers); len(generic) > 0 {
		hits = append(hits, "generic usernames "+strings.Join(generic, ", "))
	}

	v := models.LogsVerdict{Bruteforce: len(hits) >= r.MinIndicators}
	v.SystemCompromised = v.Bruteforce && s.SuccessAfterFailure
	v.Reason = reason(len(hits), r.MinIndicators, hits)
	return v
}

func (b *RuleBackend) flowVerdict(flowData string) models.FlowVerdict {
	records := extractors.ParseRecords(flowData)
	if len(records) == 0 {
		return models.FlowVerdict{Reason: "no flow records to inspect"}
	}

	best := -1
	var bestHits []string
	for _, record := range records {
		hits := b.flowIndicators(extractors.FlowFeaturesOf(record))
		if len(hits) > best {
			best, bestHits = len(hits), hits
		}
	}
	required := b.rules.Flows.MinIndicators
	return models.FlowVerdict{Bruteforce: best >= required, Reason: reason(best, required, bestHits)}
}

func (b *RuleBackend) flowIndicators(f extractors.FlowFeatures) []string {
	r := b.rules.Flows
	var hits []string
	if f.Protocol != "" && strings.EqualFold(f.Protocol, r.Protocol) {
		hits = append(hits, "protocol "+f.Protocol)
	}
	if f.SourcePort.OK && f.SourcePort.Value > r.MinSourcePort {
		hits = append(hits, fmt.Sprintf("source port %.0f", f.SourcePort.Value))
	}
	if f.DestinationPort.OK && f.DestinationPort.Value == r.DestinationPort {
		hits = append(hits, fmt.Sprintf("destination port %.0f", f.DestinationPort.Value))
	}
	if f.Packets.OK && r.Packets.contains(f.Packets.Value) {
		hits = append(hits, fmt.Sprintf("%.0f packets", f.Packets.Value))
	}
	if f.Bytes.OK && r.Bytes.contains(f.Bytes.Value) {
		hits = append(hits, fmt.Sprintf("%.0f bytes", f.Bytes.Value))
	}
	if f.HasDuration && f.Duration < r.MaxDuration {
		hits = append(hits, "duration "+f.Duration.String())
	}
	return hits
}

func reason(count, required int, hits []string) string {
	if count == 0 {
		return fmt.Sprintf("0 of the indicators present, %d required", required)
	}
	return fmt.Sprintf("%d indicators present (%d required): %s", count, required, strings.Join(hits, "; "))
}
