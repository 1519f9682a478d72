package mdpost

import (
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
)

const (
	payloadType   = "text"
	payloadFormat = "markdown"
)

// Assemble maps a post onto the payload submitted to the API. The image and
// link are appended to the body unless the body already references them, so a
// post parsed from a document that inlines its image is not duplicated.
func Assemble(post Post, state string) Payload {
	if state == "" {
		state = StatePublished
	}

	parts := make([]string, 0, 3)
	if body := strings.TrimSpace(post.Body); body != "" {
		parts = append(parts, body)
	}

	if post.HasImage() && !references(post.Body, post.Image.URL) {
		parts = append(parts, ImageHTML(*post.Image))
	}

	if post.Link != "" && !references(post.Body, post.Link) {
		text := post.Title
		if text == "" {
			text = "Link"
		}
		parts = append(parts, fmt.Sprintf("[%s](%s)", text, post.Link))
	}

	return Payload{
		Type:   payloadType,
		Format: payloadFormat,
		State:  state,
		Title:  post.Title,
		Body:   strings.Join(parts, "\n\n"),
		Tags:   slices.Clone(post.Tags),
	}
}

// ImageHTML renders an inline <img> tag for the image.
func ImageHTML(img Image) string {
	if img.Alt == "" {
		return fmt.Sprintf(`<img src="%s">`, html.EscapeString(img.URL))
	}
	return fmt.Sprintf(`<img src="%s" alt="%s">`, html.EscapeString(img.URL), html.EscapeString(img.Alt))
}

// references reports whether body already mentions url as a whole token,
// either verbatim or in its HTML-escaped attribute form. A longer URL that
// merely starts with url does not count.
func references(body, url string) bool {
	for _, u := range []string{url, html.EscapeString(url)} {
		if urlToken(u).MatchString(body) {
			return true
		}
	}
	return false
}

// urlToken matches u bounded by whitespace, quotes, brackets or the ends of
// the text.
func urlToken(u string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|[\s("'<\[=])` + regexp.QuoteMeta(u) + `(?:$|[\s)"'>\]])`)
}
