package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/saibing/served/internal/logging"
	"github.com/saibing/served/protocol"
	"github.com/stretchr/testify/require"
)

func ptrStr(s string) *string { return &s }
func ptrBool(b bool) *bool    { return &b }
func ptrInt(i int) *int       { return &i }

func TestDefaultConfigHasSaneToolPaths(t *testing.T) {
	require := require.New(t)
	c := NewDefaultConfig()
	require.Equal("dub", c.DubPath)
	require.Equal("dcd-client", c.DcdPath)
	require.True(c.EnableLinting)
}

func TestApplyOverridesOnlySuppliedFields(t *testing.T) {
	require := require.New(t)
	c := NewDefaultConfig()

	c = c.Apply(&protocol.InitializationOptions{
		D: &protocol.DOptions{DubPath: ptrStr("/opt/dub")},
	})

	require.Equal("/opt/dub", c.DubPath)
	require.Equal("dcd-client", c.DcdPath) // untouched
}

func TestApplyNilOptionsIsNoOp(t *testing.T) {
	require := require.New(t)
	c := NewDefaultConfig()
	require.Equal(c, c.Apply(nil))
}

func TestApplyRawDecodesKnownSections(t *testing.T) {
	require := require.New(t)
	c := NewDefaultConfig()
	log := logging.Default("[test] ")

	raw := []byte(`{"dfmt":{"indentSize":2},"editor":{"tabSize":8}}`)
	c = c.ApplyRaw(log, raw)

	require.Equal(2, c.DfmtIndentSize)
	require.Equal(8, c.EditorTabSize)
}

func TestApplyRawIgnoresUnknownSection(t *testing.T) {
	require := require.New(t)
	c := NewDefaultConfig()
	log := logging.Default("[test] ")

	raw := []byte(`{"bogus":{"whatever":1},"git":{"path":"/usr/bin/git"}}`)
	c = c.ApplyRaw(log, raw)

	require.Equal("/usr/bin/git", c.GitPath)
}

func TestApplyRawSkipsMalformedSectionWithoutAborting(t *testing.T) {
	require := require.New(t)
	c := NewDefaultConfig()
	log := logging.Default("[test] ")

	raw := []byte(`{"d":"not an object","git":{"path":"/usr/bin/git"}}`)
	c = c.ApplyRaw(log, raw)

	require.Equal("/usr/bin/git", c.GitPath)
	require.Equal("dub", c.DubPath) // d section skipped, default preserved
}

func TestApplyRawOnNonObjectPayloadIsNoOp(t *testing.T) {
	require := require.New(t)
	c := NewDefaultConfig()
	log := logging.Default("[test] ")

	c2 := c.ApplyRaw(log, []byte(`[1,2,3]`))
	require.Equal(c, c2)
}

func TestSupportsFeatureGatesOnCompilerVersion(t *testing.T) {
	require := require.New(t)
	c := NewDefaultConfig()
	require.False(c.SupportsFeature(">= 2.100.0"))

	require.NoError(c.SetCompilerVersion("2.105.0"))
	require.True(c.SupportsFeature(">= 2.100.0"))
	require.False(c.SupportsFeature(">= 2.200.0"))
}

func TestSetCompilerVersionRejectsGarbage(t *testing.T) {
	c := NewDefaultConfig()
	require.Error(t, c.SetCompilerVersion("not-a-version"))
}

func TestWatchFileReloadsOnWrite(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".served.json")
	require.NoError(os.WriteFile(path, []byte(`{"git":{"path":"/bin/git"}}`), 0o644))

	changed := make(chan Config, 1)
	w, err := WatchFile(logging.Default("[test] "), path, NewDefaultConfig(), func(c Config) {
		changed <- c
	})
	require.NoError(err)
	defer w.Close()

	require.NoError(os.WriteFile(path, []byte(`{"git":{"path":"/usr/bin/git"}}`), 0o644))

	select {
	case c := <-changed:
		require.Equal("/usr/bin/git", c.GitPath)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher never reloaded after write")
	}
}
