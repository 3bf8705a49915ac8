package backend

import (
	"strings"
	"testing"
)

func TestRenderPromptEmbedsInputs(t *testing.T) {
	out, err := RenderPrompt(Request{Task: TaskLogsVerdict, Inputs: map[string]string{
		InputLogsMetadata:    `{"service":"SSH"}`,
		InputLogsDescription: `{"activity":"12 failures"}`,
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `{"service":"SSH"}`) || !strings.Contains(out, "12 failures") {
		t.Fatalf("prompt is missing inputs:\n%s", out)
	}
}

func TestRenderPromptMissingInput(t *testing.T) {
	if _, err := RenderPrompt(Request{Task: TaskFlowVerdict, Inputs: map[string]string{}}); err == nil {
		t.Fatalf("expected error when flow_data is absent")
	}
	if _, err := RenderPrompt(Request{Task: "other"}); err == nil {
		t.Fatalf("expected error for unknown task")
	}
}
