package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/keel/internal/val"
)

// RunWithGolden executes a scenario and compares the trace against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshot, err := MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return result, nil
}

// MarshalSnapshot renders a result as canonical snapshot bytes.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	return val.MarshalCanonical(snapshotValue(name, result))
}

// snapshotValue renders a result as a value-model document so the golden
// bytes come from the same canonical encoder the core uses everywhere.
func snapshotValue(name string, result *Result) val.Value {
	trace := make(val.Vec, len(result.Trace))
	for i, te := range result.Trace {
		entry := val.Map{
			"op":     val.Str(te.Op),
			"caller": te.Caller,
			"args":   te.Args,
			"seq":    val.I64(te.Seq),
			"status": val.Str(te.Status),
		}
		if te.Result != nil {
			entry["result"] = te.Result
		}
		trace[i] = entry
	}

	events := make(val.Vec, len(result.Events))
	for i, e := range result.Events {
		events[i] = val.Map{
			"topic":   val.Str(e.Topic),
			"payload": e.Payload,
			"seq":     val.I64(e.Seq),
		}
	}

	return val.Map{
		"name":   val.Str(name),
		"trace":  trace,
		"events": events,
	}
}
