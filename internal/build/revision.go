package build

import (
	"github.com/go-git/go-git/v5"
)

// Revision identifies the commit the source root was built from.
type Revision struct {
	Commit string `json:"commit"`
	Branch string `json:"branch,omitempty"`
}

// SourceRevision reads HEAD of the git repository containing dir. It returns
// nil when dir is not inside a repository or HEAD cannot be resolved.
func SourceRevision(dir string) *Revision {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil
	}
	head, err := repo.Head()
	if err != nil {
		return nil
	}
	rev := &Revision{Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev
}
