// Package backend turns a stage request into a structured JSON answer, either by asking an
// inference server or by applying the deterministic decision rules offline.
package backend

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
)

// Task names one pipeline stage. Each task has its own prompt and answer schema.
type Task string

const (
	TaskLogsMetadata    Task = "logs_metadata"
	TaskLogsDescription Task = "logs_description"
	TaskLogsVerdict     Task = "logs_verdict"
	TaskFlowVerdict     Task = "flow_verdict"
)

// Input keys understood by the prompt templates.
const (
	InputText            = "input"
	InputLogs            = "logs"
	InputLogsMetadata    = "logs_metadata"
	InputLogsDescription = "logs_description"
	InputFlowData        = "flow_data"
)

// Request is a single stage invocation.
type Request struct {
	Task   Task
	Inputs map[string]string
}

// Backend produces a JSON document conforming to the task's schema.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// Fingerprint is a stable textual identity of the request, used for cache keys.
func (r Request) Fingerprint() string {
	keys := make([]string, 0, len(r.Inputs))
	for k := range r.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(r.Task))
	for _, k := range keys {
		b.WriteByte('\x00')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(r.Inputs[k])
	}
	return b.String()
}
