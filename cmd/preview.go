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
	"os"
	"strings"

	"github.com/blacktop/mdpost/internal/mdpost"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	tagStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	bodyStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

// preview prints the payload a live run would submit. Output is styled only
// when out is a terminal.
func preview(out io.Writer, payload mdpost.Payload) error {
	styled := isTerminal(out)

	label := func(s string) string {
		if styled {
			return labelStyle.Render(s)
		}
		return s
	}

	tags := "none"
	if len(payload.Tags) > 0 {
		rendered := make([]string, 0, len(payload.Tags))
		for _, tag := range payload.Tags {
			tag = "#" + tag
			if styled {
				tag = tagStyle.Render(tag)
			}
			rendered = append(rendered, tag)
		}
		tags = strings.Join(rendered, " ")
	}

	title := payload.Title
	if title == "" {
		title = "(none)"
	}

	body := payload.Body
	if styled && body != "" {
		body = bodyStyle.Render(body)
	}

	var b strings.Builder
	fmt.Fprintln(&b, "[dry-run] would post to tumblr")
	fmt.Fprintf(&b, "%s %s\n", label("title:"), title)
	fmt.Fprintf(&b, "%s %s\n", label("state:"), payload.State)
	fmt.Fprintf(&b, "%s %s\n", label("format:"), payload.Format)
	fmt.Fprintf(&b, "%s %s\n", label(fmt.Sprintf("tags (%d):", len(payload.Tags))), tags)
	fmt.Fprintf(&b, "%s\n%s\n", label(fmt.Sprintf("body (%d characters):", len(payload.Body))), body)

	_, err := io.WriteString(out, b.String())
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
