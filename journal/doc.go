// Package journal records finished process invocations in a local SQLite
// database. A *Store is a process.Observer, so it can be attached to an
// Invoker with process.WithObserver.
package journal
