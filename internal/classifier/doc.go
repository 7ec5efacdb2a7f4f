// Package classifier decides which text blocks of a document are hidden.
//
// An Orchestrator loads the settings, makes sure the blocked phrase has a
// current embedding, classifies every element already under the scan root
// and then keeps classifying elements as they are inserted.
//
// Classification of one node goes through these steps, stopping at the
// first that applies:
//
//  1. the node was already classified or is in flight: nothing happens
//  2. the node has an element child: skipped
//  3. the tag is not a text-bearing tag: skipped
//  4. the own text is shorter than the minimum length: skipped
//  5. the text is matched, and the node is redacted on a match
//
// Every node that reaches a verdict is recorded, so it is never classified
// twice during the lifetime of the Orchestrator. Matching runs on its own
// goroutine and hands its result back to the document's event loop, which
// is the only place the tree is read or written.
package classifier
