package contract

import "github.com/roach88/keel/internal/fault"

// DefaultMaxSteps bounds the number of operation executions (top-level
// plus nested) per external invocation. The external metering environment
// is the real resource limiter; this quota keeps a buggy handler from
// looping unbounded inside a single invocation long before metering would
// notice.
const DefaultMaxSteps = 128

// stepQuota counts operation executions within one external invocation.
// Reset at every top-level dispatch.
type stepQuota struct {
	maxSteps int
	current  int
}

// check increments the counter and fails with STEPS_EXCEEDED past the
// limit.
func (q *stepQuota) check(op string) error {
	q.current++
	if q.current > q.maxSteps {
		return fault.NewOp(fault.CodeStepsExceeded, op, "invocation exceeded %d steps", q.maxSteps)
	}
	return nil
}

func (q *stepQuota) reset() {
	q.current = 0
}
