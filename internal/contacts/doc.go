// Package contacts mines scraped page text for likely personnel contacts.
//
// The extractor is a low-precision, high-recall heuristic meant for human
// review: it pattern-matches email addresses that belong to the target domain
// and "Name - Title" lines, then returns a small bounded list of guesses with a
// fixed confidence per extraction path. It performs no I/O and never fails.
package contacts
