// Package stock holds the inventory rules that do not need a database: the
// stock request source variant, the request state machine, the per-operation
// authorization policies, balance arithmetic on snapshots and the sale
// deduction rules. Services load and lock rows, then ask this package what
// is allowed.
package stock
