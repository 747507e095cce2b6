// Package engine runs one unit of work per module concurrently and joins the
// branch outcomes into a single result.
//
// Every branch reports to a run-scoped join. The join records the outcome,
// and once every branch has reported it returns either a map of branch name
// to value or one aggregated error. In fail-fast mode the first failure
// cancels the remaining branches.
package engine
