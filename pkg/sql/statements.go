// Package sql provides SQL text utilities shared by the run path.
package sql

import (
	"strings"
	"unicode"
)

// SplitStatements splits a setup batch on semicolons that sit outside quoted
// literals, quoted identifiers and comments. Comments stay with the statement
// they precede. Statements holding only whitespace or comments are dropped and
// each statement is trimmed.
//
// Quotes are closed only by the same quote; a doubled quote ('') leaves and
// re-enters the literal. Backslash is not an escape.
func SplitStatements(batch string) []string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBracket
		stateLineComment
		stateBlockComment
	)

	var (
		statements []string
		current    strings.Builder
		hasCode    bool
		state      = stateNormal
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" && hasCode {
			statements = append(statements, stmt)
		}
		current.Reset()
		hasCode = false
	}

	runes := []rune(batch)
	for i := 0; i < len(runes); i++ {
		char := runes[i]
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case char == ';':
				flush()
				continue
			case char == '-' && next == '-':
				state = stateLineComment
				current.WriteString("--")
				i++
				continue
			case char == '/' && next == '*':
				state = stateBlockComment
				current.WriteString("/*")
				i++
				continue
			case char == '\'':
				state = stateSingleQuote
			case char == '"':
				state = stateDoubleQuote
			case char == '[':
				state = stateBracket
			}
			if !unicode.IsSpace(char) {
				hasCode = true
			}
		case stateSingleQuote:
			if char == '\'' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' {
				state = stateNormal
			}
		case stateBracket:
			if char == ']' {
				state = stateNormal
			}
		case stateLineComment:
			if char == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if char == '*' && next == '/' {
				state = stateNormal
				current.WriteString("*/")
				i++
				continue
			}
		}
		current.WriteRune(char)
	}
	flush()

	return statements
}

// NormalizeStatement trims a single statement and strips one trailing
// semicolon. Oracle rejects statements that end in ';'.
func NormalizeStatement(stmt string) string {
	stmt = strings.TrimRight(strings.TrimSpace(stmt), " \t\n\r")
	if strings.HasSuffix(stmt, ";") {
		stmt = strings.TrimRight(strings.TrimSuffix(stmt, ";"), " \t\n\r")
	}
	return stmt
}
