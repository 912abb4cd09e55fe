package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"loom/internal/diag"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(2)
	bag.Add(diag.NewError(diag.RenderHookOrder, diag.AtScope(0, "App", ""), "hook 2 was UseSignal, now UseMemo").
		WithNote(diag.AtScope(0, "App", ""), "hooks must run in the same order every render"))
	bag.Add(diag.New(diag.SevWarning, diag.TaskFailed, diag.Site{Task: 7}, "fetch failed"))
	bag.Add(diag.New(diag.SevInfo, diag.RuntimeInfo, diag.Site{}, "dropped"))
	return bag
}

func TestPrettyPlain(t *testing.T) {
	var buf bytes.Buffer
	Pretty(&buf, sampleBag(), PrettyOpts{ShowNotes: true})
	got := buf.String()
	require.Contains(t, got, "error RND2003 scope 0 <App>: hook 2 was UseSignal, now UseMemo\n")
	require.Contains(t, got, "  note: hooks must run in the same order every render (scope 0 <App>)\n")
	require.Contains(t, got, "warning TSK3001 task 7: fetch failed\n")
	require.True(t, strings.HasSuffix(got, "... 1 more diagnostics not shown\n"))
}

func TestWrap(t *testing.T) {
	require.Equal(t, "alpha beta\n    gamma", wrap("alpha beta gamma", 11))
	require.Equal(t, "", wrap("", 5))
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sampleBag(), JSONOpts{IncludeNotes: true, Max: 1}))
	var out DiagnosticsOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, 1, out.Count)
	require.Equal(t, 2, out.Dropped)
	d := out.Diagnostics[0]
	require.Equal(t, "RND2003", d.Code)
	require.NotNil(t, d.Site.Scope)
	require.Equal(t, uint64(0), *d.Site.Scope)
	require.Len(t, d.Notes, 1)
}
