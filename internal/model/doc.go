// Package model defines the data shared by the classifier, the settings
// store and the report writers.
//
//   - Settings and CachedEmbedding: the persisted configuration
//   - Verdict: the outcome of classifying one text block
//   - PageReport: the verdicts and counts of one page run
//
// The types are serializable to JSON for reports.
package model
