// Package ledger implements overflow-safe balance accounting over the
// storage engine.
//
// The module tracks one non-negative int64 balance per principal under
// ("BALANCE", principal) and the total supply under ("TOTAL_SUPPLY").
// Mint and burn require the Minter role; transfer requires only that the
// dispatch layer authenticated the source principal. All arithmetic is
// checked, every validation precedes every mutation, and an error return
// always means nothing changed.
package ledger
