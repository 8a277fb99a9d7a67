// Package service orchestrates the core components of the engine:
// market manager, command log, event outbox, memory reclamation and
// snapshots.
//
// It is the only write entry point. Every mutating request is logged
// to the command WAL before it touches the books, and every event the
// books emit flows through the sink into the durable outbox. Network
// transports sit above this package and never see the domain directly.
package service
