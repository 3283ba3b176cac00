package collect

import (
	"path/filepath"
	"testing"

	"github.com/lexandro/promptattach/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_List_GlobsLiteralsAndDedup(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "docs", "a.md"), "a")
	writeFile(t, filepath.Join(cwd, "docs", "nested", "b.md"), "b")
	writeFile(t, filepath.Join(cwd, "README.md"), "r")
	writeFile(t, filepath.Join(cwd, "files.txt"), `
# project docs
docs/**/*.md
README.md

docs/a.md
`)

	c, _ := newCollector(t, security.Options{})
	got, err := c.List("files.txt", cwd)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/a.md", "docs/nested/b.md", "README.md"}, relPaths(got))
}

func Test_List_MissingLiteralIsIgnored(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, "list.txt"), "gone.txt\n")

	c, _ := newCollector(t, security.Options{})
	got, err := c.List("list.txt", cwd)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Ignored)
	assert.Empty(t, Eligible(got))
}

func Test_List_MissingListFile(t *testing.T) {
	c, _ := newCollector(t, security.Options{})
	_, err := c.List("nope.txt", t.TempDir())
	assert.Error(t, err)
}
