package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenario_MintAndTransfer(t *testing.T) {
	s := loadScenario(t, "mint_and_transfer")

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Len(t, result.Trace, 3)
	assert.Len(t, result.Events, 4)
}

func TestScenario_Greetings(t *testing.T) {
	s := loadScenario(t, "greetings")
	require.Nil(t, s.Genesis)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Events)
}

func TestScenario_PauseFlow(t *testing.T) {
	s := loadScenario(t, "pause_blocks_mutations")

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	s := loadScenario(t, "mint_and_transfer")

	r1, err := Run(s)
	require.NoError(t, err)
	r2, err := Run(s)
	require.NoError(t, err)

	v1, err1 := MarshalSnapshot(s.Name, r1)
	v2, err2 := MarshalSnapshot(s.Name, r2)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, string(v1), string(v2))
}

func TestRun_ExpectMismatchFails(t *testing.T) {
	s := loadScenario(t, "greetings")
	s.Flow[0].Expect = &ExpectClause{Status: "NOT_FOUND"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "settled \"ok\"")
}

func TestRun_FailedAssertionReported(t *testing.T) {
	s := loadScenario(t, "greetings")
	s.Assertions = append(s.Assertions, Assertion{Type: AssertEventCount, Topic: "mint", Count: 5})

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "event_count")
}

func TestLoadScenario_Rejected(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing name", "description: d\nflow: [{caller: G, invoke: op}]"},
		{"missing description", "name: n\nflow: [{caller: G, invoke: op}]"},
		{"empty flow", "name: n\ndescription: d\nflow: []"},
		{"missing caller", "name: n\ndescription: d\nflow: [{invoke: op}]"},
		{"unknown field", "name: n\ndescription: d\nflows: [{caller: G, invoke: op}]"},
		{"unknown assertion", "name: n\ndescription: d\nflow: [{caller: G, invoke: op}]\nassertions: [{type: bogus}]"},
		{"invalid genesis", "name: n\ndescription: d\ngenesis: {token: {name: '', symbol: bad, decimals: 99}, admin: '', grants: []}\nflow: [{caller: G, invoke: op}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scenario.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := LoadScenario(path)
			require.Error(t, err)
		})
	}
}

func TestAssertionError_Message(t *testing.T) {
	err := &AssertionError{
		Type:     AssertBalance,
		Expected: "balance of GALICE is 750",
		Actual:   "740",
		Trace: []TraceEvent{
			{Op: "token.mint", Caller: "GMINTER", Status: "ok"},
		},
	}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: balance")
	assert.Contains(t, msg, "Expected: balance of GALICE is 750")
	assert.Contains(t, msg, "[1] token.mint by GMINTER -> ok")
}
