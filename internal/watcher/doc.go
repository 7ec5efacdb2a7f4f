// Package watcher feeds elements inserted into a document to a Classifier.
//
// For each inserted element the watcher submits the element itself and then
// every element below it, in document order. Elements that were already in
// the tree are never submitted again by the watcher; deduplication of nodes
// that are inserted twice is left to the Classifier.
package watcher
