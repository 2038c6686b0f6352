package view

import (
	"html/template"
	"io"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page is an in-memory document model. It backs the local view server and
// stands in for the browser DOM in tests.
type Page struct {
	mu         sync.RWMutex
	title      string
	markup     map[Region]template.HTML
	text       map[Region]string
	class      map[Region]string
	disabled   map[Region]bool
	renders    map[Region]int
	scrolledAt map[Region]int
}

func NewPage(title string) *Page {
	return &Page{
		title:      title,
		markup:     map[Region]template.HTML{},
		text:       map[Region]string{},
		class:      map[Region]string{},
		disabled:   map[Region]bool{},
		renders:    map[Region]int{},
		scrolledAt: map[Region]int{},
	}
}

func (p *Page) Render(r Region, markup template.HTML) {
	p.mu.Lock()
	p.markup[r] = markup
	p.renders[r]++
	p.mu.Unlock()
}

func (p *Page) Annotate(r Region, sel Selector, attr, value string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	patched, ok := setAttr(string(p.markup[r]), sel, attr, value)
	if !ok {
		return false
	}
	p.markup[r] = template.HTML(patched)
	return true
}

func (p *Page) ScrollToEnd(r Region) {
	p.mu.Lock()
	p.scrolledAt[r] = p.renders[r]
	p.mu.Unlock()
}

func (p *Page) SetText(r Region, text string) {
	p.mu.Lock()
	p.text[r] = text
	p.mu.Unlock()
}

func (p *Page) SetClass(r Region, class string) {
	p.mu.Lock()
	p.class[r] = class
	p.mu.Unlock()
}

func (p *Page) SetEnabled(r Region, enabled bool) {
	p.mu.Lock()
	p.disabled[r] = !enabled
	p.mu.Unlock()
}

// Fragment returns the current markup of a region.
func (p *Page) Fragment(r Region) template.HTML {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.markup[r]
}

// Renders counts full renders of a region.
func (p *Page) Renders(r Region) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.renders[r]
}

func (p *Page) Text(r Region) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.text[r]
}

func (p *Page) Class(r Region) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.class[r]
}

func (p *Page) Enabled(r Region) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.disabled[r]
}

// AtEnd reports whether the region was scrolled to its end after its last render.
func (p *Page) AtEnd(r Region) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.renders[r] > 0 && p.scrolledAt[r] == p.renders[r]
}

var document = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5">
<title>{{.Title}}</title>
</head>
<body class="{{.BodyClass}}">
<header>
  <button id="theme-toggle"><i class="{{.Icon}}"></i></button>
  <span id="current-username">{{.Username}}</span>
</header>
<main>
  <aside id="rooms-list">{{.Rooms}}</aside>
  <section id="messages">{{.Messages}}</section>
  <aside id="users-list">{{.Users}}</aside>
  <section id="timer">
    <span id="timer-minutes">{{.Minutes}}</span>:<span id="timer-seconds">{{.Seconds}}</span>
    <span id="current-state">{{.State}}</span>
    <button id="start-timer"{{if .StartDisabled}} disabled{{end}}>Start</button>
    <button id="pause-timer"{{if .PauseDisabled}} disabled{{end}}>Pause</button>
  </section>
  <section id="messages-container">{{.Board}}</section>
</main>
</body>
</html>
`))

// WriteDocument renders the whole page.
func (p *Page) WriteDocument(w io.Writer) error {
	p.mu.RLock()
	data := struct {
		Title, BodyClass, Icon, Username string
		Rooms, Messages, Users, Board    template.HTML
		Minutes, Seconds, State          string
		StartDisabled, PauseDisabled     bool
	}{
		Title:         p.title,
		BodyClass:     p.class[RegionBody],
		Icon:          p.class[RegionThemeIcon],
		Username:      p.text[RegionUsername],
		Rooms:         p.markup[RegionRooms],
		Messages:      p.markup[RegionMessages],
		Users:         p.markup[RegionUsers],
		Board:         p.markup[RegionBoard],
		Minutes:       p.text[RegionTimerMinutes],
		Seconds:       p.text[RegionTimerSeconds],
		State:         p.text[RegionTimerState],
		StartDisabled: p.disabled[RegionStartTimer],
		PauseDisabled: p.disabled[RegionPauseTimer],
	}
	p.mu.RUnlock()
	return document.Execute(w, data)
}

var fragmentContext = &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}

// setAttr sets attr on the first element matching sel inside markup.
func setAttr(markup string, sel Selector, attr, value string) (string, bool) {
	if markup == "" {
		return markup, false
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext)
	if err != nil {
		return markup, false
	}
	var target *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if target != nil {
			return
		}
		if n.Type == html.ElementNode && hasAttr(n, sel.Attr, sel.Value) {
			target = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	if target == nil {
		return markup, false
	}
	replaced := false
	for i := range target.Attr {
		if target.Attr[i].Key == attr {
			target.Attr[i].Val = value
			replaced = true
		}
	}
	if !replaced {
		target.Attr = append(target.Attr, html.Attribute{Key: attr, Val: value})
	}

	var b strings.Builder
	for _, n := range nodes {
		if err := html.Render(&b, n); err != nil {
			return markup, false
		}
	}
	return b.String(), true
}

func hasAttr(n *html.Node, key, val string) bool {
	for _, a := range n.Attr {
		if a.Key == key && a.Val == val {
			return true
		}
	}
	return false
}
