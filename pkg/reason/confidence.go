package reason

import (
	"strconv"
	"strings"
)

const confidenceHeading = "## Confidence"

// ExtractConfidence pulls the confidence score from a plan response: the
// first non-blank line after the confidence heading, parsed as a float and
// clamped to [0, 1]. Any missing or malformed value scores 0.0, which keeps
// the item on the human-approval path.
func ExtractConfidence(response string) float64 {
	idx := strings.Index(response, confidenceHeading)
	if idx < 0 {
		return 0.0
	}

	rest := response[idx+len(confidenceHeading):]
	for _, line := range strings.Split(rest, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			return 0.0
		}
		value, err := strconv.ParseFloat(strings.Fields(line)[0], 64)
		if err != nil {
			return 0.0
		}
		if value < 0 {
			return 0.0
		}
		if value > 1 {
			return 1.0
		}
		return value
	}
	return 0.0
}
