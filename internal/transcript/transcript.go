package transcript

import "strings"

// Turn-boundary markers, in priority order.
const (
	BaseMarker     = "Assistant:"
	InstructMarker = "<|im_start|>assistant"
)

// Style identifies which prompt template produced a transcript.
type Style string

const (
	StyleNone     Style = ""
	StyleBase     Style = "base"
	StyleInstruct Style = "instruct"
)

// ExtractContinuation returns the trimmed text after the last assistant turn
// marker and the marker form that matched. The base marker wins when both
// forms are present. ok is false when the transcript has no marker at all.
func ExtractContinuation(s string) (continuation string, style Style, ok bool) {
	if i := strings.LastIndex(s, BaseMarker); i >= 0 {
		return strings.TrimSpace(s[i+len(BaseMarker):]), StyleBase, true
	}
	if i := strings.LastIndex(s, InstructMarker); i >= 0 {
		return strings.TrimSpace(s[i+len(InstructMarker):]), StyleInstruct, true
	}
	return "", StyleNone, false
}
