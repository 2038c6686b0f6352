package view

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/pomchat/api"
)

// Message content may carry simple formatting; everything else is stripped.
var contentPolicy = bluemonday.UGCPolicy().
	AllowElements("b", "i", "em", "strong", "u", "s", "del", "code", "pre", "br").
	AllowURLSchemes("http", "https", "mailto").
	RequireNoFollowOnLinks(true)

var fragments = template.Must(template.New("fragments").Funcs(template.FuncMap{
	"comma":   func(n int) string { return humanize.Comma(int64(n)) },
	"content": func(s string) template.HTML { return template.HTML(contentPolicy.Sanitize(s)) },
	"clock":   func(ts api.Timestamp) string { return localTime(ts, "15:04:05") },
	"stamp":   func(ts api.Timestamp) string { return localTime(ts, "2006-01-02 15:04:05") },
}).Parse(`
{{define "rooms"}}{{range .}}<div class="room-item" data-room-id="{{.ID}}"><span class="room-name">{{.Name}}</span><span class="room-count">{{comma .MemberCount}}</span></div>
{{end}}{{end}}
{{define "messages"}}{{range .}}<div class="message" data-type="{{.Type}}"><div class="message-header"><span class="message-author">{{.Author}}</span><span class="message-time">{{clock .CreatedAt}}</span></div><div class="message-content">{{content .Content}}</div></div>
{{end}}{{end}}
{{define "users"}}{{range .}}<div class="user-item" data-username="{{.Username}}"{{if .FocusState}} data-focus-state="{{.FocusState}}"{{end}}><span class="user-name">{{.Username}}</span><span class="user-status"></span></div>
{{end}}{{end}}
{{define "board"}}{{range .}}<div class="message"><div class="message-header"><span class="message-author">{{.Author}}</span><span class="message-date">{{stamp .Date}}</span></div><div class="message-content">{{content .Content}}</div></div>
{{end}}{{end}}
`))

func localTime(ts api.Timestamp, layout string) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(layout)
}

func execute(name string, data any) template.HTML {
	var b strings.Builder
	if err := fragments.ExecuteTemplate(&b, name, data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("[view] render")
		return ""
	}
	return template.HTML(b.String())
}

// Presence is one rendered entry of the user list.
type Presence struct {
	Username   string
	FocusState string
}

func Rooms(rooms []api.Room) template.HTML { return execute("rooms", rooms) }

func Messages(msgs []api.Message) template.HTML { return execute("messages", msgs) }

func Users(users []Presence) template.HTML { return execute("users", users) }

func Board(msgs []api.BoardMessage) template.HTML { return execute("board", msgs) }

// Clock splits remaining seconds into zero-padded minutes and seconds.
func Clock(remaining int) (minutes, seconds string) {
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%02d", remaining/60), fmt.Sprintf("%02d", remaining%60)
}

// BodyClass is the body-level class for a theme.
func BodyClass(theme string) string { return "theme-" + theme }

// ThemeIcon is the toggle icon: a moon offers dark mode, a sun offers light mode.
func ThemeIcon(theme string) string {
	if theme == "light" {
		return "fas fa-moon"
	}
	return "fas fa-sun"
}

func UsernameLabel(name string) string { return "Current username: " + name }
