package build

import "errors"

// Sentinel errors for failures that abort a build before the live tree is
// touched. They are wrapped with context at the call site.
var (
	ErrRootMissing = errors.New("source root does not exist")
	ErrDiscovery   = errors.New("document discovery failed")
	ErrManifest    = errors.New("manifest could not be written")
)
