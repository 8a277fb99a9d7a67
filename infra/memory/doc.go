// Package memory provides object reuse and safe reclamation for the
// matching path. Orders are allocated from a typed Pool, retired into a
// RetireRing when they leave the book, and returned to the pool once no
// epoch reader can still observe them.
//
// The package is dependency-free and forms the foundation for
// allocation-free steady-state matching.
package memory
