package parser_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SARDONYX-sard/compiler-lesson/internal/parsertest"
)

// TestGoldenFixtures parses each testdata/*.txtar fixture and compares
// the s-expression rendering of the resulting AST against its bundled
// "want.txt" section.
func TestGoldenFixtures(t *testing.T) {
	for _, c := range parsertest.LoadDir(t, "testdata") {
		t.Run(c.Name, func(t *testing.T) {
			prog := parsertest.Parse(t, c.Source)
			actual := parsertest.Sexpr(prog)
			assert.Equal(t, strings.TrimSpace(c.Want), strings.TrimSpace(actual))
		})
	}
}
