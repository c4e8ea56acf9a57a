// Package shellsplit implements the quote-aware command-line scanner used by
// the validator and the execution engine. It covers exactly the subset of
// shell lexing the gateway needs: POSIX-style word splitting, detection of
// pipe operators outside quotes, and splitting a pipeline into stages.
//
// The scanner is deliberately permissive: an unterminated quote is treated as
// ordinary text rather than an error, matching how a real interactive shell
// lexes a line before complaining. Full shell grammar (subshells, redirects,
// expansions) is out of scope — commands are passed to exec directly, never
// through a shell, so those constructs are inert here.
package shellsplit

import "strings"

// Split breaks a command line into whitespace-separated tokens, honoring
// single quotes, double quotes, and backslash escapes. Quote characters are
// consumed; an escaping backslash is consumed and the escaped character kept
// verbatim. An empty or blank input yields a nil slice.
func Split(s string) []string {
	var (
		tokens   []string
		current  strings.Builder
		inToken  bool
		inSingle bool
		inDouble bool
		escaped  bool
	)

	flush := func() {
		if inToken {
			tokens = append(tokens, current.String())
			current.Reset()
			inToken = false
		}
	}

	for _, r := range s {
		if escaped {
			// Inside double quotes only \, ", $, and ` are escapable;
			// before anything else the backslash stays literal, matching
			// POSIX quoting.
			if inDouble && r != '\\' && r != '"' && r != '$' && r != '`' {
				current.WriteByte('\\')
			}
			current.WriteRune(r)
			inToken = true
			escaped = false
			continue
		}

		switch {
		case r == '\\' && !inSingle:
			// Backslash escapes the next character except inside single
			// quotes, where it is literal.
			escaped = true
			inToken = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			inToken = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			inToken = true
		case (r == ' ' || r == '\t' || r == '\n') && !inSingle && !inDouble:
			flush()
		default:
			current.WriteRune(r)
			inToken = true
		}
	}

	// A trailing backslash escapes nothing; keep it as a literal so the
	// token is not silently shortened.
	if escaped {
		current.WriteByte('\\')
		inToken = true
	}
	flush()

	return tokens
}

// IsPipeline reports whether s contains a pipe operator outside of quotes.
// A backslash-escaped pipe is not an operator.
func IsPipeline(s string) bool {
	var inSingle, inDouble, escaped bool

	for _, r := range s {
		if escaped {
			escaped = false
			continue
		}

		switch {
		case r == '\\':
			escaped = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case r == '|' && !inSingle && !inDouble:
			return true
		}
	}

	return false
}

// SplitPipeline splits a command line on unquoted pipe operators and returns
// the trimmed stages in order. Unlike Split, backslashes are retained in the
// output so each stage can be re-tokenized later. Consecutive pipes produce
// empty stages; callers decide whether those are errors. A command without
// pipes comes back as a single stage.
func SplitPipeline(s string) []string {
	var (
		stages   []string
		current  strings.Builder
		inSingle bool
		inDouble bool
		escaped  bool
	)

	for _, r := range s {
		if escaped {
			current.WriteRune(r)
			escaped = false
			continue
		}

		switch {
		case r == '\\':
			escaped = true
			current.WriteRune(r)
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			current.WriteRune(r)
		case r == '"' && !inSingle:
			inDouble = !inDouble
			current.WriteRune(r)
		case r == '|' && !inSingle && !inDouble:
			stages = append(stages, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	if last := strings.TrimSpace(current.String()); last != "" || len(stages) > 0 {
		stages = append(stages, last)
	}

	return stages
}
