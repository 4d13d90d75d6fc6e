package queryparse

import "fmt"

// SyntaxError reports a malformed query with a source span, per §4.1. It is
// returned (never panics past the package boundary) by Parse.
type SyntaxError struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
	Message   string
}

func (e *SyntaxError) Error() string {
	if e.StartLine == e.EndLine && e.StartCol == e.EndCol {
		return fmt.Sprintf("query syntax error at %d:%d: %s", e.StartLine, e.StartCol, e.Message)
	}
	return fmt.Sprintf("query syntax error at %d:%d-%d:%d: %s", e.StartLine, e.StartCol, e.EndLine, e.EndCol, e.Message)
}

func syntaxErrorAt(it item, format string, args ...any) *SyntaxError {
	return &SyntaxError{
		StartLine: it.startLn,
		StartCol:  it.startCol,
		EndLine:   it.endLn,
		EndCol:    it.endCol,
		Message:   fmt.Sprintf(format, args...),
	}
}
