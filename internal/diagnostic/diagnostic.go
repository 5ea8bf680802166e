// Package diagnostic reports fatal compile errors with source position
// context.
//
// Compilation has no error-recovery path: the first diagnostic raised
// aborts the rest of the pipeline. Fatal mirrors this by formatting a
// message and panicking with an *Error rather than returning one, so
// every call site in the lexer and parser reads as an unconditional
// abort instead of the usual "check err, propagate err" chain. Exactly
// one frame recovers it — the CLI driver's compile function (cmd/subc) —
// and its caller in the driver is where process exit status and
// structured logging both live.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/SARDONYX-sard/compiler-lesson/internal/sourcemap"
)

// Position is a 1-based line/column location in source text.
type Position struct {
	Offset int
	Line   int
	Column int
}

// Error is a single fatal diagnostic, carrying enough context to render
// a caret-style message independent of the Sink that produced it.
type Error struct {
	Message  string
	Pos      Position
	Source   string
	lineText string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: error: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// Format renders the caret-annotated, multi-line form of the error: the
// message line, the offending source line, and a caret under the column
// it points to.
func (e *Error) Format() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteByte('\n')
	if e.lineText != "" {
		sb.WriteString(e.lineText)
		sb.WriteByte('\n')
		if e.Pos.Column > 0 {
			sb.WriteString(strings.Repeat(" ", e.Pos.Column-1))
		}
		sb.WriteString("^\n")
	}
	return sb.String()
}

// Sink formats and raises fatal diagnostics against one source string.
type Sink struct {
	source string
	lines  *sourcemap.LineIndex
}

// NewSink builds a Sink for the given source text.
func NewSink(source string) *Sink {
	return &Sink{source: source, lines: sourcemap.NewLineIndex(source)}
}

// Fatal formats a message at the given byte offset and panics with an
// *Error. Never returns.
func (s *Sink) Fatal(offset int, format string, args ...interface{}) {
	line, col := s.lines.ByteOffsetToLineColumn(offset)
	err := &Error{
		Message:  fmt.Sprintf(format, args...),
		Pos:      Position{Offset: offset, Line: line + 1, Column: col + 1},
		Source:   s.source,
		lineText: s.lines.Line(line),
	}
	panic(err)
}

// Recover turns a panicked *Error into a returned error. Call it in a
// deferred function at the single point a compilation's panics should
// stop propagating (the CLI driver). Any other panic value is re-raised.
func Recover(errOut *error) {
	if r := recover(); r != nil {
		if de, ok := r.(*Error); ok {
			*errOut = de
			return
		}
		panic(r)
	}
}
