package check

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"

	"github.com/j340m3/compiler/pkg/syntax"
)

// TestFixtures checks every testdata/<name>/main.lc and compares the
// rendered report with testdata/<name>/expected.golden.
func TestFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*", "main.lc"))
	require.NoError(t, err)
	require.NotEmpty(t, paths, "no fixtures found in testdata/")

	for _, path := range paths {
		name := filepath.Base(filepath.Dir(path))
		t.Run(name, func(t *testing.T) {
			prog, source, err := syntax.ParseFile(path)
			require.NoError(t, err)

			res, err := NewChecker(DefaultConfig().Check, nil).CheckProgram(context.Background(), prog)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, WriteReport(&buf, res, map[string]string{path: string(source)}, ReportOptions{
				Color:   true,
				Types:   true,
				Context: 2,
			}))
			golden.Assert(t, ansi.Strip(buf.String()), filepath.Join(name, "expected.golden"))
		})
	}
}
