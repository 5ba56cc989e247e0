package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/keel/internal/contracts/token"
	"github.com/roach88/keel/internal/val"
)

// AssertionError is returned when an assertion fails. It includes the
// trace so the failure report stands on its own.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, te := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s by %s -> %s\n", i+1, te.Op, te.Caller, te.Status)
	}

	return buf.String()
}

func evaluateAssertion(a Assertion, tok *token.Token, result *Result) error {
	switch a.Type {
	case AssertBalance:
		return assertBalance(a, tok, result)
	case AssertSupply:
		return assertSupply(a, tok, result)
	case AssertState:
		return assertState(a, tok, result)
	case AssertEventCount:
		return assertEventCount(a, result)
	case AssertTraceContains:
		return assertTraceContains(a, result)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertBalance(a Assertion, tok *token.Token, result *Result) error {
	b, err := tok.Ledger.BalanceOf(val.Addr(a.Address))
	if err != nil {
		return err
	}
	if b != a.Amount {
		return &AssertionError{
			Type:     AssertBalance,
			Expected: fmt.Sprintf("balance of %s is %d", a.Address, a.Amount),
			Actual:   fmt.Sprintf("%d", b),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertSupply(a Assertion, tok *token.Token, result *Result) error {
	s, err := tok.Ledger.TotalSupply()
	if err != nil {
		return err
	}
	if s != a.Amount {
		return &AssertionError{
			Type:     AssertSupply,
			Expected: fmt.Sprintf("total supply is %d", a.Amount),
			Actual:   fmt.Sprintf("%d", s),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertState(a Assertion, tok *token.Token, result *Result) error {
	s, err := tok.Life.State()
	if err != nil {
		return err
	}
	if string(s) != a.Value {
		return &AssertionError{
			Type:     AssertState,
			Expected: fmt.Sprintf("lifecycle state is %q", a.Value),
			Actual:   string(s),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertEventCount(a Assertion, result *Result) error {
	count := 0
	for _, e := range result.Events {
		if e.Topic == a.Topic {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events with topic %q", a.Count, a.Topic),
			Actual:   fmt.Sprintf("%d", count),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertTraceContains(a Assertion, result *Result) error {
	for _, te := range result.Trace {
		if te.Op == a.Op && te.Status == a.Status {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("invocation of %s settling %q", a.Op, a.Status),
		Actual:   "not found in trace",
		Trace:    result.Trace,
	}
}
