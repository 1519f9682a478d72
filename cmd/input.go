/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/blacktop/mdpost/internal/logutil"
	"github.com/blacktop/mdpost/internal/mdpost"
	"github.com/blacktop/mdpost/internal/mdpost/markdown"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// options is the post input collected from the command line.
type options struct {
	File        string `json:"file"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	AltText     string `json:"alt_text"`
	Link        string `json:"link"`
	Hashtags    string `json:"hashtags"`
	State       string `json:"state"`
}

func currentOptions() options {
	return options{
		File:        strings.TrimSpace(fileFlag),
		Title:       strings.TrimSpace(titleFlag),
		Description: strings.TrimSpace(descriptionFlag),
		ImageURL:    strings.TrimSpace(imageURLFlag),
		AltText:     strings.TrimSpace(altTextFlag),
		Link:        strings.TrimSpace(linkFlag),
		Hashtags:    hashtagsFlag,
		State:       strings.ToLower(strings.TrimSpace(stateFlag)),
	}
}

// Validate reports every invalid flag at once.
func (o options) Validate() error {
	if o.File == "" && o.Title == "" && o.Description == "" {
		return mdpost.ValidationError{Reason: "provide --file or at least --title or --description"}
	}

	states := make([]any, 0, len(mdpost.States))
	for _, state := range mdpost.States {
		states = append(states, state)
	}

	return validation.ValidateStruct(&o,
		validation.Field(&o.ImageURL, is.RequestURL),
		validation.Field(&o.Link, is.RequestURL),
		validation.Field(&o.State, validation.Required, validation.In(states...)),
	)
}

// buildPost reads the document named by --file ("-" reads stdin), or
// synthesizes one from the flags, and applies the flag overrides.
func buildPost(o options, stdin io.Reader) (mdpost.Post, error) {
	var post mdpost.Post
	switch o.File {
	case "":
		post.Body = o.Description
	case "-":
		logutil.Debugf("reading from stdin")
		parsed, err := markdown.ParseReader(stdin)
		if err != nil {
			return mdpost.Post{}, fmt.Errorf("parse stdin: %w", err)
		}
		post = parsed
	default:
		logutil.Debugf("reading from file: %s", o.File)
		parsed, err := markdown.ParseFile(o.File)
		if err != nil {
			return mdpost.Post{}, fmt.Errorf("parse %s: %w", o.File, err)
		}
		post = parsed
	}

	if o.Title != "" {
		post.Title = o.Title
	}

	switch {
	case o.ImageURL != "":
		post.Image = &mdpost.Image{URL: o.ImageURL, Alt: o.AltText}
	case o.AltText != "" && post.HasImage():
		post.Image = &mdpost.Image{URL: post.Image.URL, Alt: o.AltText}
	case o.AltText != "":
		logutil.Warnf("ignoring --alt-text: post has no image")
	}

	if o.Link != "" {
		post.Link = o.Link
	}

	if strings.TrimSpace(o.Hashtags) != "" {
		post.Tags = mdpost.SplitTags(o.Hashtags)
	}

	if post.Title == "" && post.Body == "" {
		return mdpost.Post{}, mdpost.ValidationError{Field: "content", Reason: "post has no title or body"}
	}

	return post, nil
}
