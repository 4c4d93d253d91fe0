package triage

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pegfuzz/internal/trace"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  cc  -c ", []string{"cc", "-c"}},
		{`sh -c 'exit 1'`, []string{"sh", "-c", "exit 1"}},
		{`a "b c" d\ e`, []string{"a", "b c", "d e"}},
		{`x "say \"hi\""`, []string{"x", `say "hi"`}},
		{`''`, []string{""}},
	}
	for _, tt := range tests {
		got, err := SplitArgs(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := SplitArgs(`a 'b`)
	assert.Error(t, err)
	_, err = SplitArgs(`a \`)
	assert.Error(t, err)

	_, err = New("   ", 1)
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestRunKeepsOnlyFailingPrograms(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	tester, err := New(`sh -c '! grep -q bug "$0"'`, 3)
	require.NoError(t, err)

	dir := t.TempDir()
	var cases []Case
	for i := range 6 {
		program := "fine"
		if i%3 == 0 {
			program = "bug here"
		}
		cases = append(cases, Case{Index: i, File: filepath.Join(dir, "sub", fmt.Sprintf("p_%d.txt", i)), Program: program})
	}

	results, err := tester.Run(context.Background(), cases)
	require.NoError(t, err)
	require.Len(t, results, len(cases))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, i%3 == 0, r.Bug, "case %d", i)
		_, statErr := os.Stat(r.File)
		if r.Bug {
			assert.NoError(t, statErr)
		} else {
			assert.True(t, os.IsNotExist(statErr))
		}
	}
}

func TestSharedFileCasesRunInOrder(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	tester, err := New(`sh -c 'sleep 0.1; ! grep -q bad "$0"'`, 4)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "prog.txt")
	var cases []Case
	for i, program := range []string{"bad", "good", "good", "good"} {
		cases = append(cases, Case{Index: i, File: file, Program: program})
	}

	results, err := tester.Run(context.Background(), cases)
	require.NoError(t, err)
	require.Len(t, results, len(cases))
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, i == 0, r.Bug, "case %d", i)
	}
	// the last program passed and removed the shared file
	_, statErr := os.Stat(file)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGroupByFile(t *testing.T) {
	cases := []Case{{File: "a"}, {File: "b"}, {File: "a"}, {File: "c"}, {File: "b"}}
	assert.Equal(t, [][]int{{0, 2}, {1, 4}, {3}}, groupByFile(cases))
}

func TestMissingCommandIsAnError(t *testing.T) {
	tester, err := New("definitely-not-a-command-pegfuzz", 1)
	require.NoError(t, err)
	_, err = tester.Test(context.Background(), Case{File: filepath.Join(t.TempDir(), "p.txt"), Program: "x"})
	assert.Error(t, err)
}

func TestVerdictsAreTraced(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	tester, err := New(`sh -c 'exit 3'`, 1)
	require.NoError(t, err)

	ring := trace.NewRingTracer(16, trace.LevelDebug)
	ctx := trace.WithSpan(trace.WithTracer(context.Background(), ring), 42)
	bug, err := tester.Test(ctx, Case{File: filepath.Join(t.TempDir(), "p.txt"), Program: "x"})
	require.NoError(t, err)
	assert.True(t, bug)

	var ends []trace.Event
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanEnd && ev.Name == "triage" {
			ends = append(ends, ev)
		}
	}
	require.Len(t, ends, 1)
	assert.Equal(t, uint64(42), ends[0].ParentID)
	assert.Equal(t, "bug", ends[0].Detail)
}
