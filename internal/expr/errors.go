package expr

import (
	"errors"
	"fmt"
	"strings"
)

// Usage lists the accepted expression forms. It accompanies every FormatError.
const Usage = `Please use one of these formats:
  (A)                            - Simple task
  (A:arg1,arg2)                  - Task with arguments
  && [ (A), (B) ]                - AND operator, stops at the first failure
  & [ (A), (B) ]                 - AND operator, runs every operand
  || [ (A), (B) ]                - OR operator, stops at the first success
  | [ (A), (B) ]                 - OR operator, runs every operand
  !(A)                           - NOT operator
  || [ && [ (A), (B) ], !(C) ]   - Complex expression
  (A:"x,y")                      - Quoted argument (keeps x,y together as one argument)
  (A:"x,y",arg2)                 - x,y as arg1 and regular arg2
  (A:"\"x\"")                    - Escaped quotes inside an argument`

// FormatError reports an expression rejected by the format pre-check.
// No structural parse is attempted for such expressions.
type FormatError struct {
	// Reason describes the first violated rule.
	Reason string
	// Pos is the byte offset of the offending character, or -1 for count mismatches.
	Pos int
}

func (e *FormatError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("invalid expression format at position %d: %s", e.Pos, e.Reason)
	}
	return fmt.Sprintf("invalid expression format: %s", e.Reason)
}

// Severity classifies a parse diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a problem found during the structural parse.
// Pos is a byte offset into the normalized expression.
type Diagnostic struct {
	Severity Severity
	Pos      int
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at position %d: %s", d.Severity, d.Pos, d.Message)
}

// ParseError reports that the structural parse produced no expression.
type ParseError struct {
	Normalized  string
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	if len(e.Diagnostics) == 0 {
		return "empty expression"
	}
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.String()
	}
	return "parse failed: " + strings.Join(msgs, "; ")
}

// IsFormatError reports whether err is or wraps a *FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
