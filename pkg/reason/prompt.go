package reason

import (
	"fmt"
	"strings"
)

// PlanPromptInput carries everything the plan prompt needs.
type PlanPromptInput struct {
	Handbook string
	Memory   string
	ItemName string
	Content  string
}

// PlanPrompt builds the prompt for turning one work item into a plan. The
// response format is load-bearing: the confidence section and the reply
// markers are parsed verbatim downstream, so the instructions spell them out.
func PlanPrompt(in PlanPromptInput) string {
	var b strings.Builder

	b.WriteString("You are an email assistant working from a company handbook.\n\n")
	b.WriteString("# Company Handbook\n\n")
	b.WriteString(strings.TrimSpace(in.Handbook))
	b.WriteString("\n\n")

	if strings.TrimSpace(in.Memory) != "" {
		b.WriteString("# Lessons From Past Decisions\n\n")
		b.WriteString("Apply these learnings from previously rejected plans:\n\n")
		b.WriteString(strings.TrimSpace(in.Memory))
		b.WriteString("\n\n")
	}

	b.WriteString(fmt.Sprintf("# Work Item: %s\n\n", in.ItemName))
	b.WriteString(strings.TrimSpace(in.Content))
	b.WriteString("\n\n")

	b.WriteString(`# Instructions

Produce a plan in markdown with exactly these sections:

## Analysis
Brief assessment of the item and what it needs.

## Recommended Actions
Numbered list of concrete steps.

## Requires Approval
Checklist of actions that need human sign-off, as "- [ ] item" lines.

## Reply Draft
If a reply should be sent, include the full reply body between these exact
marker lines:
---BEGIN REPLY---
(reply text)
---END REPLY---
Omit this section entirely when no reply is warranted.

## Confidence
A single number from 0.0 to 1.0 on its own line, rating how confident you are
that the plan can execute without human review.
`)

	return b.String()
}

// ReviewPrompt builds the prompt for distilling a lesson from a rejected plan.
// The current memory document rides along so the response does not restate a
// lesson that is already recorded.
func ReviewPrompt(planName, planContent, memory string) string {
	var b strings.Builder
	b.WriteString("A human reviewed and REJECTED the following plan.\n\n")
	b.WriteString(fmt.Sprintf("# Rejected Plan: %s\n\n", planName))
	b.WriteString(strings.TrimSpace(planContent))
	b.WriteString("\n\n")

	if strings.TrimSpace(memory) != "" {
		b.WriteString("# Lessons Already Recorded\n\n")
		b.WriteString(strings.TrimSpace(memory))
		b.WriteString("\n\n")
	}

	b.WriteString(`# Instructions

State, in one or two plain sentences, the most likely lesson to learn from
this rejection so future plans avoid the same mistake. Do not repeat a lesson
that is already recorded. Respond with the sentences only: no headings, no
bullets, no formatting.
`)
	return b.String()
}
