// Package media maps raw type labels and file paths onto the fixed set of
// canonical media kinds used by the published manifest.
//
// Classification runs an ordered list of strategies; the first one that
// returns a kind wins and the last one always answers, so Classify never
// fails. The extension and synonym tables are immutable after construction
// and are shared by reference between the classifier and the asset locator.
package media
