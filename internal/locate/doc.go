// Package locate finds the file an authored asset reference points at.
//
// References in project documents are often stale: absolute paths from
// another machine, percent-encoded names, a wrong extension, or a file that
// moved into a sibling folder. A Locator runs an ordered list of strategies,
// each a pure function of the filesystem, and returns the first hit.
package locate
