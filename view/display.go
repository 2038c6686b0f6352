// Package view is the render layer: pure state-to-markup functions plus the
// Display surfaces that receive the rendered regions.
package view

import (
	"context"
	"html/template"
)

// Region names a part of the page.
type Region string

const (
	RegionBody         Region = "body"
	RegionThemeIcon    Region = "theme-icon"
	RegionRooms        Region = "rooms-list"
	RegionMessages     Region = "messages"
	RegionUsers        Region = "users-list"
	RegionTimerMinutes Region = "timer-minutes"
	RegionTimerSeconds Region = "timer-seconds"
	RegionTimerState   Region = "current-state"
	RegionStartTimer   Region = "start-timer"
	RegionPauseTimer   Region = "pause-timer"
	RegionBoard        Region = "messages-container"
	RegionUsername     Region = "current-username"
)

// Selector picks the element whose attribute Attr equals Value.
type Selector struct {
	Attr  string
	Value string
}

// UserSelector addresses a rendered presence entry.
func UserSelector(username string) Selector {
	return Selector{Attr: "data-username", Value: username}
}

// Display is the page surface controllers write to.
type Display interface {
	// Render replaces the whole content of a region.
	Render(r Region, markup template.HTML)
	// Annotate sets one attribute on an already rendered element without
	// re-rendering the region. It reports whether the element was found.
	Annotate(r Region, sel Selector, attr, value string) bool
	ScrollToEnd(r Region)
	SetText(r Region, text string)
	SetClass(r Region, class string)
	SetEnabled(r Region, enabled bool)
}

// Multi fans every call out to several displays.
type Multi []Display

func (m Multi) Render(r Region, markup template.HTML) {
	for _, d := range m {
		d.Render(r, markup)
	}
}

func (m Multi) Annotate(r Region, sel Selector, attr, value string) bool {
	found := false
	for _, d := range m {
		if d.Annotate(r, sel, attr, value) {
			found = true
		}
	}
	return found
}

func (m Multi) ScrollToEnd(r Region) {
	for _, d := range m {
		d.ScrollToEnd(r)
	}
}

func (m Multi) SetText(r Region, text string) {
	for _, d := range m {
		d.SetText(r, text)
	}
}

func (m Multi) SetClass(r Region, class string) {
	for _, d := range m {
		d.SetClass(r, class)
	}
}

func (m Multi) SetEnabled(r Region, enabled bool) {
	for _, d := range m {
		d.SetEnabled(r, enabled)
	}
}

// Prompter asks the user for one line of input. An empty answer means cancel;
// ctx ending abandons the question.
type Prompter interface {
	Prompt(ctx context.Context, label string) (string, error)
}

// Alerter surfaces a blocking message to the user.
type Alerter interface {
	Alert(msg string)
}
