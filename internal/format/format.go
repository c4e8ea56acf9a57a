// Package format post-processes successful AWS CLI output for readability.
//
// It is a presentation layer only: formatting is idempotent, never alters
// execution status, and falls back to the raw output whenever detection or
// parsing fails. JSON is pretty-printed, space-aligned tables get a
// separator under the header, and list-like output gets bullet points.
package format

import (
	"encoding/json"
	"strings"
)

// Hint names an output format when the caller already knows it.
type Hint string

const (
	// HintNone asks for auto-detection.
	HintNone Hint = ""
	// HintJSON forces JSON pretty-printing.
	HintJSON Hint = "json"
	// HintTable forces table formatting.
	HintTable Hint = "table"
	// HintList forces list formatting.
	HintList Hint = "list"
)

// Format renders output for readability, auto-detecting the shape unless a
// hint is given. On any parse failure the input is returned unchanged.
func Format(output string, hint Hint) string {
	if strings.TrimSpace(output) == "" {
		return output
	}

	switch hint {
	case HintJSON:
		if formatted, ok := formatJSON(output); ok {
			return formatted
		}
		return output
	case HintTable:
		return formatTable(output)
	case HintList:
		return formatList(output)
	}

	trimmed := strings.TrimSpace(output)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if formatted, ok := formatJSON(output); ok {
			return formatted
		}
	}

	lines := nonBlankLines(output)
	if len(lines) > 1 {
		if allMultiColumn(lines) {
			return formatTable(output)
		}
		return formatList(output)
	}

	return output
}

// IsJSON reports whether text parses as JSON.
func IsJSON(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return json.Valid([]byte(text))
}

// formatJSON re-indents JSON output. ok is false when the text does not
// parse, including the case where it merely looks like JSON.
func formatJSON(text string) (string, bool) {
	var data any
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return "", false
	}
	pretty, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", false
	}
	return string(pretty), true
}

// formatTable inserts a separator line under the header of space-aligned
// tabular output. Column positions are taken from the header's spacing.
// Output that already carries a separator is returned unchanged to keep the
// operation idempotent.
func formatTable(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) <= 1 {
		return text
	}
	if isSeparator(lines[1]) {
		return text
	}

	header := lines[0]
	var sep strings.Builder
	for _, r := range header {
		if r == ' ' {
			sep.WriteByte(' ')
		} else {
			sep.WriteByte('-')
		}
	}

	formatted := make([]string, 0, len(lines)+1)
	formatted = append(formatted, header, sep.String())
	formatted = append(formatted, lines[1:]...)
	return strings.Join(formatted, "\n")
}

// formatList prefixes each non-empty line with a bullet, preserving
// indentation. Already-bulleted lines are left alone to keep the operation
// idempotent.
func formatList(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	formatted := make([]string, 0, len(lines))

	for _, line := range lines {
		content := strings.TrimLeft(line, " ")
		if content == "" || strings.HasPrefix(content, "• ") {
			formatted = append(formatted, line)
			continue
		}
		indent := line[:len(line)-len(content)]
		formatted = append(formatted, indent+"• "+content)
	}

	return strings.Join(formatted, "\n")
}

// isSeparator reports whether line is a table separator: dashes in the
// column positions, spaces between them, nothing else.
func isSeparator(line string) bool {
	return strings.Contains(line, "-") && strings.Trim(line, "- ") == ""
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// allMultiColumn reports whether every line splits into more than one field,
// the heuristic for space-aligned tables.
func allMultiColumn(lines []string) bool {
	for _, line := range lines {
		if len(strings.Fields(line)) <= 1 {
			return false
		}
	}
	return true
}
