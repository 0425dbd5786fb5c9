// Package mock provides a test double for the backend.Client interface.
//
// MockClient answers with empty pages and not-found errors by default;
// tests inject behavior through its function fields or the ServePages
// helpers, which serve fixed row sets with real paging semantics.
package mock
