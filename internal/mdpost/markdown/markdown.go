// Package markdown turns a markdown document into a mdpost.Post.
//
// The expected layout is a title line, a line of space separated #hashtags and
// the body. An optional front matter block may precede the document; its
// fields seed the post before the lines are read.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/adrg/frontmatter"
	"github.com/blacktop/mdpost/internal/logutil"
	"github.com/blacktop/mdpost/internal/mdpost"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var hashtagToken = regexp.MustCompile(`^#[^\s#,]+$`)

type frontMatter struct {
	Title string   `yaml:"title" toml:"title" json:"title"`
	Tags  []string `yaml:"tags" toml:"tags" json:"tags"`
	Link  string   `yaml:"link" toml:"link" json:"link"`
	Image string   `yaml:"image" toml:"image" json:"image"`
	Alt   string   `yaml:"alt" toml:"alt" json:"alt"`
}

// ParseFile reads and parses the document at path.
func ParseFile(path string) (mdpost.Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return mdpost.Post{}, mdpost.ValidationError{Field: "file", Reason: fmt.Sprintf("%q not found", path)}
		}
		return mdpost.Post{}, fmt.Errorf("read %s: %w", path, err)
	}
	logutil.Debugf("read document: path=%s bytes=%d", path, len(data))
	return Parse(data)
}

// ParseReader parses the document read from r.
func ParseReader(r io.Reader) (mdpost.Post, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return mdpost.Post{}, fmt.Errorf("read document: %w", err)
	}
	return Parse(data)
}

// Parse converts a markdown document into a post.
func Parse(src []byte) (mdpost.Post, error) {
	src = bytes.TrimSpace(bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n")))
	if len(src) == 0 {
		return mdpost.Post{}, mdpost.ValidationError{Field: "content", Reason: "document is empty"}
	}

	meta, rest, err := parseFrontMatter(src)
	if err != nil {
		return mdpost.Post{}, err
	}

	post := mdpost.Post{
		Title: strings.TrimSpace(meta.Title),
		Link:  strings.TrimSpace(meta.Link),
	}
	if url := strings.TrimSpace(meta.Image); url != "" {
		post.Image = &mdpost.Image{URL: url, Alt: strings.TrimSpace(meta.Alt)}
	}

	lines := strings.Split(strings.TrimSpace(string(rest)), "\n")

	if post.Title == "" {
		if i := firstNonEmpty(lines); i >= 0 && isTitleLine(lines[i]) {
			post.Title = strings.TrimSpace(lines[i])
			lines = remove(lines, i)
		}
	}

	var lineTags []string
	inCode := codeLines(strings.Join(lines, "\n"))
	for i, line := range lines {
		if _, ok := inCode[i]; ok {
			continue
		}
		if tags, ok := hashtagLine(line); ok {
			lineTags = tags
			lines = remove(lines, i)
			break
		}
	}
	post.Tags = mdpost.UniqueTags(meta.Tags, lineTags)

	post.Body = strings.TrimSpace(strings.Join(lines, "\n"))

	if post.Image == nil {
		post.Image = extractImage(post.Body)
	}
	if post.Link == "" {
		post.Link = extractLink([]byte(post.Body))
	}

	if post.Title == "" && post.Body == "" {
		return mdpost.Post{}, mdpost.ValidationError{Field: "content", Reason: "document has no title or body"}
	}

	logutil.Debugf("parsed document: title=%q tags=%d image=%t link=%q body_len=%d",
		post.Title, len(post.Tags), post.Image != nil, post.Link, len(post.Body))

	return post, nil
}

// parseFrontMatter splits off a leading front matter block. A block that is
// never closed, or whose content is not a key/value mapping, is a thematic
// break rather than front matter and the document is returned unchanged.
func parseFrontMatter(src []byte) (frontMatter, []byte, error) {
	var meta frontMatter
	rest, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err == nil {
		return meta, rest, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || !looksLikeMapping(src) {
		logutil.Debugf("no front matter: %v", err)
		return frontMatter{}, src, nil
	}
	return frontMatter{}, nil, mdpost.ValidationError{Field: "front matter", Reason: err.Error()}
}

var mappingKey = regexp.MustCompile(`^\s*["']?[\w-]+["']?\s*[:=]`)

// looksLikeMapping reports whether the block between the opening delimiter
// and the next line holding the same delimiter has a key/value line.
func looksLikeMapping(src []byte) bool {
	lines := strings.Split(string(src), "\n")
	if len(lines) < 2 {
		return false
	}
	delim := strings.TrimSpace(lines[0])
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == delim {
			break
		}
		if mappingKey.MatchString(line) {
			return true
		}
	}
	return false
}

// isTitleLine reports whether line can serve as the post title: it must not
// start with '#' and must not be a thematic break.
func isTitleLine(line string) bool {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return false
	}
	return !isThematicBreak(line)
}

func isThematicBreak(line string) bool {
	compact := strings.ReplaceAll(line, " ", "")
	if len(compact) < 3 || !strings.ContainsAny(compact[:1], "-*_") {
		return false
	}
	return strings.Count(compact, compact[:1]) == len(compact)
}

// hashtagLine reports whether line consists solely of #tag tokens and returns
// the tags without their leading '#'.
func hashtagLine(line string) ([]string, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, false
	}
	tags := make([]string, 0, len(fields))
	for _, field := range fields {
		if !hashtagToken.MatchString(field) {
			return nil, false
		}
		tags = append(tags, field[1:])
	}
	return tags, true
}

// extractImage returns the first <img> element of body outside code, falling
// back to the first markdown image. An <img> without a src drops the image
// altogether.
func extractImage(body string) *mdpost.Image {
	if body == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(maskCode(body)))
	if err != nil {
		logutil.Debugf("parse body html: %v", err)
		return nil
	}

	if sel := doc.Find("img").First(); sel.Length() > 0 {
		src := strings.TrimSpace(sel.AttrOr("src", ""))
		if src == "" {
			logutil.Debugf("dropping <img> without src")
			return nil
		}
		return &mdpost.Image{URL: src, Alt: strings.TrimSpace(sel.AttrOr("alt", ""))}
	}

	return markdownImage([]byte(body))
}

func markdownImage(src []byte) *mdpost.Image {
	var img *mdpost.Image
	walk(src, func(n ast.Node) bool {
		node, ok := n.(*ast.Image)
		if !ok {
			return true
		}
		if dest := strings.TrimSpace(string(node.Destination)); dest != "" {
			img = &mdpost.Image{URL: dest, Alt: strings.TrimSpace(string(node.Text(src)))}
		}
		return false
	})
	return img
}

// extractLink returns the destination of the first markdown [text](url) link.
func extractLink(src []byte) string {
	var link string
	walk(src, func(n ast.Node) bool {
		node, ok := n.(*ast.Link)
		if !ok {
			return true
		}
		link = strings.TrimSpace(string(node.Destination))
		return link == ""
	})
	return link
}

// walk visits the nodes of the markdown AST in document order until visit
// returns false.
func walk(src []byte, visit func(ast.Node) bool) {
	if len(src) == 0 {
		return
	}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if !visit(n) {
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
}

// codeRanges returns the byte ranges of src that hold code block lines or
// inline code span text.
func codeRanges(src []byte) [][2]int {
	var ranges [][2]int
	walk(src, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				ranges = append(ranges, [2]int{seg.Start, seg.Stop})
			}
		case *ast.CodeSpan:
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					ranges = append(ranges, [2]int{t.Segment.Start, t.Segment.Stop})
				}
			}
		}
		return true
	})
	return ranges
}

// codeLines returns the indexes of the lines of doc that lie inside a code
// block.
func codeLines(doc string) map[int]struct{} {
	out := map[int]struct{}{}
	src := []byte(doc)
	walk(src, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				out[bytes.Count(src[:lines.At(i).Start], []byte("\n"))] = struct{}{}
			}
		}
		return true
	})
	return out
}

// maskCode blanks code so HTML inside code samples is not read as markup.
func maskCode(body string) string {
	ranges := codeRanges([]byte(body))
	if len(ranges) == 0 {
		return body
	}
	masked := []byte(body)
	for _, r := range ranges {
		for i := r[0]; i < r[1] && i < len(masked); i++ {
			if masked[i] != '\n' {
				masked[i] = ' '
			}
		}
	}
	return string(masked)
}

func firstNonEmpty(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			return i
		}
	}
	return -1
}

func remove(lines []string, i int) []string {
	out := make([]string, 0, len(lines)-1)
	out = append(out, lines[:i]...)
	return append(out, lines[i+1:]...)
}
