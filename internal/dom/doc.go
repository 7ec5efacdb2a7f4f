// Package dom provides the small slice of browser document behaviour that
// blockphrase needs, built on golang.org/x/net/html.
//
// A Document owns a parsed HTML tree and is bound to a Loop. The Loop plays
// the role of the browser's UI thread: every read or write of the tree must
// happen inside a task running on it. Mutations made through Document
// methods are queued as MutationRecords and delivered to observers in a
// microtask that runs right after the task that made them, so several
// insertions made in one task arrive as one batch.
//
// Tree walks (Elements, Find, Path) are iterative and visit nodes in
// depth-first pre-order.
package dom
