package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/didlcore/internal/config"
	"github.com/nainya/didlcore/pkg/didlerr"
)

const library = `<?xml version="1.0"?>
<DIDL-Lite xmlns="urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:upnp="urn:schemas-upnp-org:metadata-1-0/upnp/">
  <item id="a" parentID="0" restricted="1">
    <dc:title>Zebra</dc:title>
    <dc:creator>Ann</dc:creator>
    <upnp:class>object.item.audioItem.musicTrack</upnp:class>
    <res protocolInfo="http-get:*:audio/mpeg:*" size="100">http://host/a.mp3</res>
  </item>
  <item id="b" parentID="0" restricted="1">
    <dc:title>apple</dc:title>
    <dc:creator>Bob</dc:creator>
    <upnp:class>object.item.audioItem.musicTrack</upnp:class>
    <res protocolInfo="http-get:*:audio/mpeg:*" size="200">http://host/b.mp3</res>
  </item>
  <item id="c" parentID="0" restricted="1">
    <dc:title>Mango</dc:title>
    <dc:creator>Cid</dc:creator>
    <upnp:class>object.item.audioItem.musicTrack</upnp:class>
    <res protocolInfo="http-get:*:audio/mpeg:*" size="300">http://host/c.mp3</res>
  </item>
</DIDL-Lite>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFormatCmd_SortsByTitle(t *testing.T) {
	path := writeFile(t, "library.xml", library)

	out, err := execute(t, "format", path, "--sort", "+dc:title")
	require.NoError(t, err)

	apple := strings.Index(out, "<dc:title>apple</dc:title>")
	mango := strings.Index(out, "<dc:title>Mango</dc:title>")
	zebra := strings.Index(out, "<dc:title>Zebra</dc:title>")
	require.True(t, apple >= 0 && mango >= 0 && zebra >= 0, out)
	assert.Less(t, apple, mango)
	assert.Less(t, mango, zebra)
}

func TestFormatCmd_DescendingAndPaged(t *testing.T) {
	path := writeFile(t, "library.xml", library)

	out, err := execute(t, "format", path, "--sort", "-dc:creator", "--start", "1", "--count", "1")
	require.NoError(t, err)

	assert.Contains(t, out, `<item id="b"`)
	assert.NotContains(t, out, `<item id="a"`)
	assert.NotContains(t, out, `<item id="c"`)
}

func TestFormatCmd_Filter(t *testing.T) {
	path := writeFile(t, "library.xml", library)

	out, err := execute(t, "format", path, "--filter", "dc:title")
	require.NoError(t, err)

	assert.Contains(t, out, "<dc:title>Zebra</dc:title>")
	assert.Contains(t, out, "<upnp:class>")
	assert.NotContains(t, out, "dc:creator")
	assert.NotContains(t, out, `size="100"`)

	out, err = execute(t, "format", path, "--filter", "res@size")
	require.NoError(t, err)
	assert.Contains(t, out, `size="100"`)
}

func TestFormatCmd_Stdin(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(library))
	root.SetArgs([]string{"format", "-", "--sort", "+dc:title"})

	require.NoError(t, root.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "<DIDL-Lite "))
}

func TestFormatCmd_InvalidCriteria(t *testing.T) {
	path := writeFile(t, "library.xml", library)

	_, err := execute(t, "format", path, "--sort", "dc:title")
	require.Error(t, err)
	assert.ErrorIs(t, err, didlerr.ErrParse)
	assert.Equal(t, ExitInvalidInput, exitCodeForError(err))
}

func TestFormatCmd_InvalidDocument(t *testing.T) {
	path := writeFile(t, "broken.xml", "<root/>")

	_, err := execute(t, "format", path)
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, exitCodeForError(err))
}

func TestFormatCmd_MetricsFile(t *testing.T) {
	path := writeFile(t, "library.xml", library)
	metricsPath := filepath.Join(t.TempDir(), "didl.prom")

	_, err := execute(t, "format", path, "--sort", "+dc:title", "--metrics-file", metricsPath)
	require.NoError(t, err)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "didl_elements_parsed_total")
	assert.Contains(t, string(data), "didl_sort_comparators_compiled_total")
}

func TestFormatCmd_ConfigDefaults(t *testing.T) {
	path := writeFile(t, "library.xml", library)
	cfgPath := writeFile(t, "didl.yaml", `
sort:
  default_criteria: "-dc:title"
interner:
  kind: ordered
`)

	out, err := execute(t, "format", path, "--config", cfgPath)
	require.NoError(t, err)

	zebra := strings.Index(out, "Zebra")
	apple := strings.Index(out, "apple")
	assert.Less(t, zebra, apple)
}

func TestMergeCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"append", []string{"merge", "C1,5", "C2,9"}, "C1,5,C2,9"},
		{"overwrite", []string{"merge", "C1,5,C2,9", "C1,7"}, "C1,7,C2,9"},
		{"empty snapshot", []string{"merge", "", "C1,5"}, "C1,5"},
		{"collapse", []string{"merge", "C1,5", ""}, ""},
		{"no collapse", []string{"merge", "C1,5", "", "--no-collapse"}, "C1,5"},
		{"pair delimiter", []string{"merge", "C1:5", "C2:6", "--pair-delimiter", ":"}, "C1:5,C2:6"},
		{"several fragments", []string{"merge", "", "C1,1", "C2,2", "C1,3"}, "C1,3,C2,2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestModerateCmd_FlushesOnEOF(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("C1,5\nC2,9\nC3,\nC1,7\n"))
	root.SetArgs([]string{"moderate", "--tick", "1h", "--min-interval", "1h"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "C1,7,C2,9\n", out.String())
}

func TestModerateCmd_SkipsBlankLines(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader("C1,5\n\n  \nC2,9\n\n"))
	root.SetArgs([]string{"moderate", "--tick", "1h", "--min-interval", "1h"})

	require.NoError(t, root.Execute())
	assert.Equal(t, "C1,5,C2,9\n", out.String())
}

func TestModerateCmd_File(t *testing.T) {
	path := writeFile(t, "updates.log", "C1,1\nC1,2\n")

	out, err := execute(t, "moderate", path, "--tick", "1h")
	require.NoError(t, err)
	assert.Equal(t, "C1,2\n", out)
}

func TestModerateCmd_InvalidTick(t *testing.T) {
	_, err := execute(t, "moderate", "--tick", "0s")
	require.Error(t, err)
	assert.Equal(t, ExitUsageError, exitCodeForError(err))
}

func TestMergeCmd_InvalidFragment(t *testing.T) {
	_, err := execute(t, "merge", "C1,5", "C2,")
	require.Error(t, err)
	assert.ErrorIs(t, err, didlerr.ErrValidation)
	assert.Equal(t, ExitInvalidInput, exitCodeForError(err))

	_, err = execute(t, "merge", "C1,5", "C2,6,C3,7")
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInput, exitCodeForError(err))
}

func TestMergeCmd_ArgsValidation(t *testing.T) {
	cmd := newMergeCmd(&globalFlags{})
	assert.Error(t, cmd.Args(cmd, []string{"C1,5"}))
	assert.NoError(t, cmd.Args(cmd, []string{"C1,5", "C2,6"}))
}

func TestRootCmd_UnknownFlag(t *testing.T) {
	_, err := execute(t, "format", "--bogus")
	require.Error(t, err)
	assert.ErrorIs(t, err, errUsage)
	assert.Equal(t, ExitUsageError, exitCodeForError(err))
}

func TestRootCmd_MissingConfig(t *testing.T) {
	_, err := execute(t, "merge", "C1,5", "C2,6", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitConfigError, exitCodeForError(err))
}

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"config", fmt.Errorf("load: %w", config.ErrInvalidConfig), ExitConfigError},
		{"missing config", config.ErrConfigNotFound, ExitConfigError},
		{"parse", didlerr.Parse("op", "x", "bad"), ExitInvalidInput},
		{"validation", didlerr.Validation("op", "x", "bad"), ExitInvalidInput},
		{"type mismatch", didlerr.TypeMismatch("op", "a", "b"), ExitInvalidInput},
		{"metrics", fmt.Errorf("%w: disk full", errMetricsExport), ExitMetricsFailed},
		{"usage", fmt.Errorf("%w: bad flag", errUsage), ExitUsageError},
		{"other", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCodeForError(tt.err))
		})
	}
}
