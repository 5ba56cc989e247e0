package journal

import (
	"fmt"

	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/event"
	"github.com/roach88/keel/internal/val"
)

// RecordInvocation inserts a settled invocation record.
// Uses ON CONFLICT(tx_token) DO NOTHING for idempotency - re-recording the
// same transaction token is silently ignored. Other constraint violations
// (e.g., NOT NULL) still return errors.
//
// Args and Result are serialized to canonical JSON per RFC 8785 so replay
// reads back byte-identical input.
//
// Implements contract.Recorder.
func (j *Journal) RecordInvocation(rec contract.InvocationRecord) error {
	args := rec.Args
	if args == nil {
		args = val.Map{}
	}
	argsJSON, err := val.MarshalCanonical(args)
	if err != nil {
		return fmt.Errorf("record invocation: %w", err)
	}

	var resultJSON any
	if rec.Result != nil {
		b, err := val.MarshalCanonical(rec.Result)
		if err != nil {
			return fmt.Errorf("record invocation: %w", err)
		}
		resultJSON = string(b)
	}

	_, err = j.db.Exec(`
		INSERT INTO invocations
		(tx_token, op, caller, args, ledger_seq, status, result)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tx_token) DO NOTHING
	`,
		rec.Token,
		rec.Op,
		string(rec.Caller),
		string(argsJSON),
		rec.LedgerSeq,
		rec.Status,
		resultJSON,
	)
	if err != nil {
		return fmt.Errorf("record invocation: %w", err)
	}

	return nil
}

// AppendEvent inserts a published event.
// Uses ON CONFLICT(seq) DO NOTHING for idempotency - the event sequence is
// unique per event, so a duplicate seq means the same event re-appended.
//
// Implements event.Sink.
func (j *Journal) AppendEvent(e event.Event) error {
	payloadJSON, err := val.MarshalCanonical(e.Payload)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	_, err = j.db.Exec(`
		INSERT INTO events (seq, topic, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		e.Seq,
		e.Topic,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	return nil
}
