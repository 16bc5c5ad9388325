// Package fakes provides shared test doubles for the loan workflows: an
// in-memory loan store with the production store's conditional-update
// semantics, scripted remote clients with call counting and error
// injection, and a contextual logger spy.
package fakes
