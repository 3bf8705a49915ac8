package backend

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/miradorstack/mirador-bfeval/internal/models"
)

// object builds a closed object schema. Every property is required except those named in optional.
func object(properties map[string]any, optional ...string) map[string]any {
	required := make([]string, 0, len(properties))
	for _, name := range sortedNames(properties) {
		if !slices.Contains(optional, name) {
			required = append(required, name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

func serviceEnum() []any {
	out := make([]any, 0, len(models.Services))
	for _, s := range models.Services {
		out = append(out, string(s))
	}
	return out
}

// servicePattern matches any casing of a known service, as models.Service decodes it.
func servicePattern() string {
	names := make([]string, 0, len(models.Services))
	for _, s := range models.Services {
		names = append(names, regexp.QuoteMeta(string(s)))
	}
	return "(?i)^(" + strings.Join(names, "|") + ")$"
}

// schemas are sent to back-ends. Strict structured output requires every property to be
// listed as required, so the reason of a verdict is demanded here.
var schemas = map[Task]map[string]any{
	TaskLogsMetadata: object(map[string]any{
		"duration": map[string]any{"type": "string"},
		"attacker": map[string]any{"type": "string"},
		"service":  map[string]any{"type": "string", "enum": serviceEnum()},
	}),
	TaskLogsDescription: object(map[string]any{
		"activity": map[string]any{"type": "string"},
	}),
	TaskLogsVerdict: object(map[string]any{
		"bruteforce":         map[string]any{"type": "boolean"},
		"system_compromised": map[string]any{"type": "boolean"},
		"reason":             map[string]any{"type": "string"},
	}),
	TaskFlowVerdict: object(map[string]any{
		"bruteforce": map[string]any{"type": "boolean"},
		"reason":     map[string]any{"type": "string"},
	}),
}

// accepted are the shapes answers are checked against: verdict reasons may be absent and
// service labels may use any casing.
var accepted = map[Task]map[string]any{
	TaskLogsMetadata: object(map[string]any{
		"duration": map[string]any{"type": "string"},
		"attacker": map[string]any{"type": "string"},
		"service":  map[string]any{"type": "string", "pattern": servicePattern()},
	}),
	TaskLogsDescription: schemas[TaskLogsDescription],
	TaskLogsVerdict: object(map[string]any{
		"bruteforce":         map[string]any{"type": "boolean"},
		"system_compromised": map[string]any{"type": "boolean"},
		"reason":             map[string]any{"type": "string"},
	}, "reason"),
	TaskFlowVerdict: object(map[string]any{
		"bruteforce": map[string]any{"type": "boolean"},
		"reason":     map[string]any{"type": "string"},
	}, "reason"),
}

var compiled = func() map[Task]*gojsonschema.Schema {
	out := make(map[Task]*gojsonschema.Schema, len(accepted))
	for task, doc := range accepted {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(doc))
		if err != nil {
			panic(fmt.Sprintf("compile %s schema: %v", task, err))
		}
		out[task] = schema
	}
	return out
}()

// Schema returns the JSON schema document of task, or nil for an unknown task.
func Schema(task Task) map[string]any {
	return schemas[task]
}

// Validate checks raw against the accepted shape of task.
func Validate(task Task, raw []byte) error {
	schema, ok := compiled[task]
	if !ok {
		return fmt.Errorf("unknown task %q", task)
	}
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation error: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return fmt.Errorf("validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
