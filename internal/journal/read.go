package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/keel/internal/contract"
	"github.com/roach88/keel/internal/event"
	"github.com/roach88/keel/internal/val"
)

// ReadInvocations returns every journaled invocation in deterministic
// order: ORDER BY ledger_seq ASC, tx_token COLLATE BINARY ASC. The ledger
// sequence alone is unique per external invocation; the token tiebreak
// keeps the ordering total even if that ever changes.
//
// Returns an empty slice (not nil) when the journal is empty.
func (j *Journal) ReadInvocations(ctx context.Context) ([]contract.InvocationRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT tx_token, op, caller, args, ledger_seq, status, result
		FROM invocations
		ORDER BY ledger_seq ASC, tx_token COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	recs := []contract.InvocationRecord{}
	for rows.Next() {
		rec, err := scanInvocation(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invocations: %w", err)
	}

	return recs, nil
}

func scanInvocation(rows *sql.Rows) (contract.InvocationRecord, error) {
	var (
		rec      contract.InvocationRecord
		caller   string
		argsJSON string
		result   sql.NullString
	)
	if err := rows.Scan(&rec.Token, &rec.Op, &caller, &argsJSON, &rec.LedgerSeq, &rec.Status, &result); err != nil {
		return rec, fmt.Errorf("scan invocation: %w", err)
	}
	rec.Caller = val.Addr(caller)

	args, err := val.UnmarshalMap([]byte(argsJSON))
	if err != nil {
		return rec, fmt.Errorf("unmarshal args for %s: %w", rec.Token, err)
	}
	rec.Args = args

	if result.Valid {
		v, err := val.UnmarshalValue([]byte(result.String))
		if err != nil {
			return rec, fmt.Errorf("unmarshal result for %s: %w", rec.Token, err)
		}
		rec.Result = v
	}

	return rec, nil
}

// ReadEvents returns every journaled event ordered by sequence.
// Returns an empty slice (not nil) when no events exist.
func (j *Journal) ReadEvents(ctx context.Context) ([]event.Event, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, topic, payload
		FROM events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		var (
			e       event.Event
			payload string
		)
		if err := rows.Scan(&e.Seq, &e.Topic, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		v, err := val.UnmarshalValue([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("unmarshal payload for event %d: %w", e.Seq, err)
		}
		e.Payload = v
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

// LastSeqs returns the highest journaled event sequence and ledger
// sequence. Both are 0 for an empty journal.
func (j *Journal) LastSeqs(ctx context.Context) (eventSeq, ledgerSeq int64, err error) {
	err = j.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM events
	`).Scan(&eventSeq)
	if err != nil {
		return 0, 0, fmt.Errorf("max event seq: %w", err)
	}

	err = j.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(ledger_seq), 0) FROM invocations
	`).Scan(&ledgerSeq)
	if err != nil {
		return 0, 0, fmt.Errorf("max ledger seq: %w", err)
	}

	return eventSeq, ledgerSeq, nil
}
