package mdpost

import "context"

// Post states accepted by the Tumblr API.
const (
	StatePublished = "published"
	StateDraft     = "draft"
	StateQueue     = "queue"
	StatePrivate   = "private"
)

// States lists every supported post state.
var States = []string{StatePublished, StateDraft, StateQueue, StatePrivate}

// Image is an inline image referenced by a post.
type Image struct {
	URL string
	Alt string
}

// Post is the structured form of a single blog entry. Values are built once
// per invocation and passed by value.
type Post struct {
	Title string
	Tags  []string
	Body  string
	Image *Image
	Link  string
}

// HasImage reports whether the post carries an image with a URL.
func (p Post) HasImage() bool {
	return p.Image != nil && p.Image.URL != ""
}

// Payload is the submission form of a post as sent to the remote API.
type Payload struct {
	Type   string
	Format string
	State  string
	Title  string
	Body   string
	Tags   []string
}

// Result describes a successfully created post.
type Result struct {
	ID  string
	URL string
}

// Publisher abstracts a blogging platform that can create posts.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, payload Payload) (Result, error)
}
