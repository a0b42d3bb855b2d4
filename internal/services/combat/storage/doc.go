// Package storage declares the persistence boundaries of the combat
// service. The event ledger interface is the authoritative one; every other
// store holds state derivable from replaying it.
package storage
