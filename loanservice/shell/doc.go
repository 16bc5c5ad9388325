// Package shell holds the infrastructure concerns shared by the loan
// orchestrator's feature slices: the workflow error taxonomy, the
// fixed-delay retry policy for remote calls, and the observability
// interfaces implemented by the oteladapters package.
package shell
