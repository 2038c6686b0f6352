package view

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Terminal prints regions as plain text. Re-renders that only append to the
// previous content print just the new lines.
type Terminal struct {
	mu    sync.Mutex
	w     io.Writer
	last  map[Region]string
	muted map[Region]bool
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w, last: map[Region]string{}, muted: map[Region]bool{}}
}

// Mute silences regions that change too often to print, such as the seconds field.
func (t *Terminal) Mute(regions ...Region) *Terminal {
	t.mu.Lock()
	for _, r := range regions {
		t.muted[r] = true
	}
	t.mu.Unlock()
	return t
}

func (t *Terminal) Render(r Region, markup template.HTML) {
	text := PlainText(markup)
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.last[r]
	t.last[r] = text
	if t.muted[r] || text == prev {
		return
	}
	if prev != "" && strings.HasPrefix(text, prev) {
		fmt.Fprint(t.w, strings.TrimLeft(text[len(prev):], "\n"))
		return
	}
	fmt.Fprintf(t.w, "── %s ──\n", r)
	if text != "" {
		fmt.Fprint(t.w, text)
	}
}

func (t *Terminal) Annotate(r Region, sel Selector, attr, value string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.muted[r] {
		fmt.Fprintf(t.w, "[%s] %s %s=%s\n", r, sel.Value, strings.TrimPrefix(attr, "data-"), value)
	}
	return true
}

func (t *Terminal) ScrollToEnd(Region) {}

func (t *Terminal) SetText(r Region, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.muted[r] || t.last[r] == text {
		return
	}
	t.last[r] = text
	fmt.Fprintf(t.w, "[%s] %s\n", r, text)
}

func (t *Terminal) SetClass(r Region, class string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.muted[r] {
		fmt.Fprintf(t.w, "[%s] class=%s\n", r, class)
	}
}

func (t *Terminal) SetEnabled(Region, bool) {}

// PlainText flattens markup to text, one line per block element.
func PlainText(markup template.HTML) string {
	z := html.NewTokenizer(strings.NewReader(string(markup)))
	var (
		b    strings.Builder
		line []string
	)
	flush := func() {
		if len(line) > 0 {
			b.WriteString(strings.Join(line, " "))
			b.WriteByte('\n')
			line = line[:0]
		}
	}
	depth := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			flush()
			return b.String()
		case html.TextToken:
			if s := strings.Join(strings.Fields(string(z.Text())), " "); s != "" {
				line = append(line, s)
			}
		case html.StartTagToken:
			name, _ := z.TagName()
			if isBlock(string(name)) {
				depth++
			}
			if string(name) == "br" {
				flush()
			}
		case html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				flush()
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if isBlock(string(name)) {
				depth--
				// only outermost blocks end a line
				if depth == 0 {
					flush()
				}
			}
		}
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "div", "p", "li", "pre", "blockquote":
		return true
	}
	return false
}
