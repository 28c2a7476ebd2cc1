package repair

import (
	"regexp"
	"strings"
)

// Explanations attached to successful results.
const (
	ExplanationFenced    = "Code fixed by AI"
	ExplanationExtracted = "Code extracted and fixed by AI"
)

const promptHeader = `You are an expert in Mermaid.js diagram syntax. Your task is to fix the provided Mermaid code and make it syntactically correct.

Rules:
1. Return ONLY the fixed Mermaid code, nothing else
2. Preserve the original intent and structure as much as possible
3. Fix syntax errors, invalid node IDs, and formatting issues
4. Ensure all connections are valid
5. Use proper Mermaid.js syntax for the diagram type
6. Do not add explanations or comments

Original Mermaid code:
` + "```mermaid\n"

// BuildPrompt returns the instruction prompt for markup. priorError, when
// non-empty, is included so the model knows what the renderer rejected.
func BuildPrompt(markup, priorError string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString(markup)
	b.WriteString("\n```")
	if priorError != "" {
		b.WriteString("\n\nError message: ")
		b.WriteString(priorError)
	}
	b.WriteString("\n\nFixed code:")
	return b.String()
}

var fencedBlock = regexp.MustCompile("(?s)```(?:mermaid)?\\s*(.*?)```")

// chatter marks reply lines that are prose rather than markup.
var chatter = []string{"here", "fixed", "code"}

// ParseResponse extracts markup from a model reply.
//
// The first fenced block wins. Without one, every non-blank line that does
// not read like prose is kept. ErrUnparseable is returned when nothing
// remains.
func ParseResponse(reply string) (*Result, error) {
	if m := fencedBlock.FindStringSubmatch(reply); m != nil {
		if fixed := strings.TrimSpace(m[1]); fixed != "" {
			return &Result{FixedText: fixed, Explanation: ExplanationFenced}, nil
		}
	}

	var kept []string
	for _, line := range strings.Split(reply, "\n") {
		if strings.TrimSpace(line) == "" || isChatter(line) {
			continue
		}
		kept = append(kept, line)
	}
	if fixed := strings.TrimSpace(strings.Join(kept, "\n")); fixed != "" {
		return &Result{FixedText: fixed, Explanation: ExplanationExtracted}, nil
	}
	return nil, ErrUnparseable
}

func isChatter(line string) bool {
	lower := strings.ToLower(line)
	for _, word := range chatter {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
