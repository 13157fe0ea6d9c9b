// Package core provides the business logic for the grading audit dashboard.
//
// The package holds all domain logic independent of any UI or transport
// layer. The web handlers and the backend client depend on it; it depends on
// neither.
//
// # Architecture
//
// The package is organized around a few key concepts:
//
//   - Records: [AuditRecord] is one graded answer sheet as reported by the
//     backend, with the machine score, the human score and a [Status].
//   - Classification: [Classify] maps each status to a label, a severity and
//     whether a resolve action is offered. Unknown statuses are surfaced as
//     [ErrUnknownStatus], never silently mapped.
//   - Aggregation: [Health] and [Distribution] summarize a record collection
//     for the stat cards and charts. Zero-count categories are omitted.
//   - Store: [Store] holds the current [Snapshot]. It is only ever replaced
//     wholesale by [Store.Sync].
//   - Dispatcher: [Dispatcher] runs simulate, resolve and upload against the
//     backend, one at a time, and re-syncs the store after each.
//
// # Action Flow
//
//  1. A handler calls [Dispatcher.Resolve] (or Simulate, Upload)
//  2. Upload requests are validated locally; invalid ones never reach the backend
//  3. The busy gate is taken; a second action is rejected with [ErrBusy]
//  4. The backend call runs under its own timeout
//  5. The store re-syncs, whether or not the call succeeded
//  6. The gate is released and the [Pending] handle completes
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - NET001-NET004: Backend transport errors (unreachable, rejected, timeout)
//   - VAL000-VAL006: Upload validation errors (missing script, score, answer key)
//   - ACT001-ACT002: Dispatcher errors (busy, cancelled)
//   - REC001-REC002: Record errors (not found, not resolvable)
//   - STS001: Unknown status
//
// # Refresh
//
// [Store.StartRefreshScheduler] re-syncs on a fixed interval so that records
// created by other clients appear without a manual refresh. A failed refresh
// keeps the previous snapshot and is reported through [Store.Notice].
package core
