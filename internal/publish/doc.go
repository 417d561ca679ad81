// Package publish replaces the live output directory with a freshly built
// tree so that readers only ever see the complete previous tree or the
// complete new one.
//
// A Transaction takes an exclusive lock marker next to the live directory,
// hands out a sibling temp directory to build into, and on Commit swaps it
// into place with renames. Close always releases the lock and rolls back an
// unfinished build. Repair recovers from crashed runs and from external
// processes (cloud sync clients) that rename the live directory to a
// numbered variant such as "projects 2".
package publish
