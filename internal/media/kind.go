package media

// Kind is a canonical media kind.
type Kind string

const (
	KindImage          Kind = "image"
	KindVideo          Kind = "video"
	Kind3DModel        Kind = "3d-model"
	KindGame           Kind = "game"
	KindText           Kind = "text"
	KindAudio          Kind = "audio"
	KindURLLink        Kind = "url-link"
	KindCrossReference Kind = "cross-reference"
)

// KindLocalLink is the published form of a resolved cross-reference: a
// site-relative link to another project page.
const KindLocalLink Kind = "local-link"

// AllKinds lists every canonical kind in a stable order.
var AllKinds = []Kind{
	KindImage,
	KindVideo,
	Kind3DModel,
	KindGame,
	KindText,
	KindAudio,
	KindURLLink,
	KindCrossReference,
}

// IsCanonical reports whether k is one of AllKinds.
func (k Kind) IsCanonical() bool {
	for _, c := range AllKinds {
		if c == k {
			return true
		}
	}
	return false
}

func (k Kind) String() string { return string(k) }
