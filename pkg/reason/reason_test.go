package reason

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestSubprocessMissingBinary(t *testing.T) {
	s := NewSubprocess("test-model", WithBinary("mycroft-no-such-binary"))

	_, err := s.Generate(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestSubprocessTimeout(t *testing.T) {
	s := NewSubprocess("test-model",
		WithBinary("sleep"),
		WithTimeout(time.Nanosecond))

	_, err := s.Generate(context.Background(), "5")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("err = %v, want timeout", err)
	}
}

func TestFallbackPlanRoutesToHuman(t *testing.T) {
	plan := FallbackPlan(nil)
	if !strings.Contains(plan, "## Requires Approval") {
		t.Errorf("fallback plan has no approval section:\n%s", plan)
	}
	if !strings.Contains(plan, "Manual review") {
		t.Errorf("fallback plan does not ask for review:\n%s", plan)
	}
	if _, ok := extractReplyMarkers(plan); ok {
		t.Error("fallback plan must not contain a reply block")
	}
	if ExtractConfidence(plan) != 0.0 {
		t.Error("fallback plan must score zero confidence")
	}
}

func extractReplyMarkers(doc string) (string, bool) {
	i := strings.Index(doc, "---BEGIN REPLY---")
	if i < 0 {
		return "", false
	}
	return doc[i:], true
}

func TestPlanPromptContents(t *testing.T) {
	prompt := PlanPrompt(PlanPromptInput{
		Handbook: "# Company Handbook\n\nBe brief.",
		Memory:   "- 2026-08-20: Do not promise dates.",
		ItemName: "email-server-down-abc123.md",
		Content:  "The server is down.",
	})

	for _, want := range []string{
		"Be brief.",
		"Do not promise dates.",
		"email-server-down-abc123.md",
		"The server is down.",
		"## Confidence",
		"0.0 to 1.0",
		"---BEGIN REPLY---",
		"---END REPLY---",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestPlanPromptOmitsEmptyMemory(t *testing.T) {
	prompt := PlanPrompt(PlanPromptInput{
		Handbook: "rules",
		Memory:   "  \n",
		ItemName: "email-x.md",
		Content:  "body",
	})
	if strings.Contains(prompt, "Lessons From Past Decisions") {
		t.Error("empty memory should not add a lessons section")
	}
}

func TestReviewPrompt(t *testing.T) {
	memory := "# Agent Memory\n\n- **2026-08-20T00:00:00Z** (from plan-old.md): Do not promise dates."
	prompt := ReviewPrompt("plan-x.md", "## Analysis\nSend everything immediately.", memory)
	if !strings.Contains(prompt, "REJECTED") {
		t.Error("review prompt does not state the rejection")
	}
	if !strings.Contains(prompt, "plan-x.md") {
		t.Error("review prompt missing plan name")
	}
	if !strings.Contains(prompt, "Do not promise dates.") {
		t.Error("review prompt missing the memory document")
	}
	if !strings.Contains(prompt, "one or two") {
		t.Error("review prompt missing length instruction")
	}
}

func TestReviewPromptOmitsEmptyMemory(t *testing.T) {
	prompt := ReviewPrompt("plan-x.md", "content", "  \n")
	if strings.Contains(prompt, "Lessons Already Recorded") {
		t.Error("empty memory should not add a lessons section")
	}
}

func TestExtractConfidence(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
	}{
		{
			name:     "plain value",
			response: "## Analysis\nfine\n\n## Confidence\n0.85\n",
			want:     0.85,
		},
		{
			name:     "value after blank lines",
			response: "## Confidence\n\n\n0.4\n",
			want:     0.4,
		},
		{
			name:     "value with trailing words",
			response: "## Confidence\n0.7 (fairly sure)\n",
			want:     0.7,
		},
		{
			name:     "clamped above one",
			response: "## Confidence\n1.5\n",
			want:     1.0,
		},
		{
			name:     "negative scores zero",
			response: "## Confidence\n-0.3\n",
			want:     0.0,
		},
		{
			name:     "missing section",
			response: "## Analysis\nno confidence here\n",
			want:     0.0,
		},
		{
			name:     "non-numeric value",
			response: "## Confidence\nhigh\n",
			want:     0.0,
		},
		{
			name:     "heading with nothing after it",
			response: "## Confidence\n",
			want:     0.0,
		},
		{
			name:     "next heading before any value",
			response: "## Confidence\n## Notes\n0.9\n",
			want:     0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractConfidence(tt.response); got != tt.want {
				t.Errorf("ExtractConfidence = %v, want %v", got, tt.want)
			}
		})
	}
}
