// Package lead implements lead lifecycle management: intake, the scoring
// engine, status transitions, and lead analytics.
//
// Scoring and transitions are independent: a score delta never changes
// status and a transition never touches the score. Both are attributable —
// every accepted change writes an append-only audit record.
package lead
