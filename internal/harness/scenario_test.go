package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/listing_lifecycle.yaml")
	require.NoError(t, err)

	assert.Equal(t, "listing_lifecycle", s.Name)
	require.Len(t, s.Setup, 1)
	assert.Equal(t, "InitLedger", s.Setup[0].Invoke)
	require.Len(t, s.Steps, 6)

	first := s.Steps[0]
	assert.Equal(t, "MN62581990", first.Caller)
	assert.Equal(t, []string{"IX109025", `{"dealer":"D1","units":1}`}, first.Args)
	require.NotNil(t, first.Expect)
	assert.Equal(t, "READY_FOR_SHIPMENT", first.Expect.Fields["status"])

	require.NotNil(t, s.Steps[2].Expect.Result)
	assert.Equal(t, "MN62581990", *s.Steps[2].Expect.Result)
	require.NotNil(t, s.Steps[3].Expect.Count)
	assert.Equal(t, 1, *s.Steps[3].Expect.Count)
	assert.Len(t, s.Assertions, 5)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nsteps: [{invoke: GetAllProducts}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nsteps: [{invoke: GetAllProducts}]",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			yaml:    "name: n\ndescription: d",
			wantErr: "steps list is required",
		},
		{
			name:    "unknown field",
			yaml:    "name: n\ndescription: d\nstep: [{invoke: GetAllProducts}]",
			wantErr: "field step not found",
		},
		{
			name:    "unknown function",
			yaml:    "name: n\ndescription: d\nsteps: [{invoke: DeleteProduct}]",
			wantErr: `steps[0]: unknown function "DeleteProduct"`,
		},
		{
			name:    "unknown mode",
			yaml:    "name: n\ndescription: d\nsteps: [{invoke: GetAllProducts, mode: dry}]",
			wantErr: `unknown mode "dry"`,
		},
		{
			name:    "unknown error kind",
			yaml:    "name: n\ndescription: d\nsteps: [{invoke: GetAllProducts, expect: {error: TIMEOUT}}]",
			wantErr: `unknown error kind "TIMEOUT"`,
		},
		{
			name:    "error with result",
			yaml:    "name: n\ndescription: d\nsteps: [{invoke: GetAllProducts, expect: {error: QUERY, count: 1}}]",
			wantErr: "error cannot be combined",
		},
		{
			name:    "expect in setup",
			yaml:    "name: n\ndescription: d\nsetup: [{invoke: InitLedger, expect: {count: 1}}]\nsteps: [{invoke: GetAllProducts}]",
			wantErr: "setup[0]: expect is not allowed",
		},
		{
			name:    "final_state without key",
			yaml:    "name: n\ndescription: d\nsteps: [{invoke: GetAllProducts}]\nassertions: [{type: final_state, expect: {a: b}}]",
			wantErr: "key is required for final_state",
		},
		{
			name:    "final_state without expect",
			yaml:    "name: n\ndescription: d\nsteps: [{invoke: GetAllProducts}]\nassertions: [{type: final_state, key: P1}]",
			wantErr: "expect is required for final_state",
		},
		{
			name:    "trace_count without function",
			yaml:    "name: n\ndescription: d\nsteps: [{invoke: GetAllProducts}]\nassertions: [{type: trace_count, count: 1}]",
			wantErr: "function is required for trace_count",
		},
		{
			name:    "trace_order without functions",
			yaml:    "name: n\ndescription: d\nsteps: [{invoke: GetAllProducts}]\nassertions: [{type: trace_order}]",
			wantErr: "functions list is required",
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nsteps: [{invoke: GetAllProducts}]\nassertions: [{type: eventually}]",
			wantErr: `unknown assertion type "eventually"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("b.yaml", "name: b\ndescription: d\nsteps: [{invoke: GetAllProducts}]")
	write("a.yml", "name: a\ndescription: d\nsteps: [{invoke: GetAllProducts}]")
	write("notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	scenarios, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "a", scenarios[0].Name)
	assert.Equal(t, "b", scenarios[1].Name)
}

func TestLoadDir_DuplicateNames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.yaml", "two.yaml"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name),
			[]byte("name: same\ndescription: d\nsteps: [{invoke: GetAllProducts}]"), 0o644))
	}

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate scenario name "same"`)
}
