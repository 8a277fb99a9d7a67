// Package snapshot persists and restores the full market state. A
// snapshot captures every symbol, book and resting order at a sequence
// boundary; loading one and replaying the command log from that
// sequence reproduces the live state exactly.
//
// Epoch readers from infra/memory mark snapshot reads so retired
// orders are not reclaimed mid-walk.
package snapshot
