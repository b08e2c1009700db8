package scoring

import (
	"regexp"
	"strings"
)

// Structural tags the model must emit.
const (
	ThinkOpen   = "<think>"
	ThinkClose  = "</think>"
	ActionOpen  = "<action>"
	ActionClose = "</action>"
)

var actionBlock = regexp.MustCompile(`<action>(.*?)</action>`)

// ValidateFormat reports whether all four tags are present and, by first
// occurrence, the think block closes before the action block opens.
// Repeated tags after the first occurrence are ignored.
func ValidateFormat(s string) bool {
	thinkOpen := strings.Index(s, ThinkOpen)
	thinkClose := strings.Index(s, ThinkClose)
	actionOpen := strings.Index(s, ActionOpen)
	actionClose := strings.Index(s, ActionClose)

	if thinkOpen == -1 || thinkClose == -1 || actionOpen == -1 || actionClose == -1 {
		return false
	}
	if thinkOpen > thinkClose || actionOpen > actionClose {
		return false
	}
	return thinkClose <= actionOpen
}

// ExtractAction returns the trimmed content of the last <action> block.
// Blocks spanning a newline do not count.
func ExtractAction(s string) (string, bool) {
	matches := actionBlock.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return "", false
	}
	return strings.TrimSpace(matches[len(matches)-1][1]), true
}

// Equal compares two actions after trimming and lowercasing both sides.
func Equal(action, groundTruth string) bool {
	return strings.ToLower(strings.TrimSpace(action)) == strings.ToLower(strings.TrimSpace(groundTruth))
}
