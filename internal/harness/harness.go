package harness

import (
	"fmt"

	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/contracts/counter"
	"github.com/roach88/keel/internal/contracts/hello"
	"github.com/roach88/keel/internal/contracts/token"
	"github.com/roach88/keel/internal/fault"
	"github.com/roach88/keel/internal/host"
	"github.com/roach88/keel/internal/val"
)

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory environment with predetermined
// transaction tokens, so two runs of the same scenario produce identical
// traces.
//
// Execution flow:
//  1. Wire a fresh environment with every shipped contract registered
//  2. Apply the genesis manifest, if any
//  3. Execute flow steps, validating expect clauses
//  4. Evaluate assertions against the final state and trace
func Run(scenario *Scenario) (*Result, error) {
	env := host.NewEnv()
	tok := token.New(env)
	reg := contract.NewRegistry()
	tok.Register(reg)
	counter.Register(reg)
	hello.Register(reg)

	total := len(scenario.Flow)
	if scenario.Genesis != nil {
		total += 1 + len(scenario.Genesis.Grants)
	}
	tokens := make([]string, total)
	for i := range tokens {
		tokens[i] = fmt.Sprintf("tx-%04d", i+1)
	}
	disp := contract.New(env, reg, tok.Life, host.NewFixedGenerator(tokens...))

	if scenario.Genesis != nil {
		if err := scenario.Genesis.Apply(disp); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	result := NewResult()

	for i, step := range scenario.Flow {
		args, err := stepArgs(step.Args)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: flow[%d]: %w", scenario.Name, i, err)
		}

		res, ierr := disp.Invoke(val.Addr(step.Caller), step.Invoke, args)

		te := TraceEvent{
			Op:     step.Invoke,
			Caller: val.Addr(step.Caller),
			Args:   args,
			Status: "ok",
			Result: res,
			Seq:    env.Clock.LedgerSeq(),
		}
		if ierr != nil {
			te.Status = string(fault.CodeOf(ierr))
			if te.Status == "" {
				te.Status = "error"
			}
			te.Result = nil
		}
		result.Trace = append(result.Trace, te)

		checkExpect(result, i, step, te)
	}

	result.Events = env.Events.Events()

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(a, tok, result); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}

	return result, nil
}

// checkExpect validates one flow step's settlement against its expect
// clause. A step without a clause must settle ok.
func checkExpect(result *Result, i int, step FlowStep, te TraceEvent) {
	wantStatus := "ok"
	wantResult := ""
	if step.Expect != nil {
		wantStatus = step.Expect.Status
		wantResult = step.Expect.Result
	}

	if te.Status != wantStatus {
		result.AddError(fmt.Sprintf("flow[%d] %s: settled %q, expected %q", i, step.Invoke, te.Status, wantStatus))
		return
	}
	if wantResult != "" {
		encoded, err := val.MarshalCanonical(te.Result)
		if err != nil {
			result.AddError(fmt.Sprintf("flow[%d] %s: encode result: %v", i, step.Invoke, err))
			return
		}
		if string(encoded) != wantResult {
			result.AddError(fmt.Sprintf("flow[%d] %s: result %s, expected %s", i, step.Invoke, encoded, wantResult))
		}
	}
}

// stepArgs converts YAML argument values into the core value model.
func stepArgs(args map[string]any) (val.Map, error) {
	m := val.Map{}
	for k, v := range args {
		converted, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("arg %q: %w", k, err)
		}
		m[k] = converted
	}
	return m, nil
}

func toValue(v any) (val.Value, error) {
	switch x := v.(type) {
	case string:
		return val.Str(x), nil
	case bool:
		return val.Bool(x), nil
	case int:
		return val.I64(x), nil
	case int64:
		return val.I64(x), nil
	case []any:
		vec := make(val.Vec, len(x))
		for i, e := range x {
			converted, err := toValue(e)
			if err != nil {
				return nil, err
			}
			vec[i] = converted
		}
		return vec, nil
	case map[string]any:
		return stepArgs(x)
	default:
		return nil, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}
