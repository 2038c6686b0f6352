package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/pomchat/chat"
	"github.com/gosuda/pomchat/live"
	"github.com/gosuda/pomchat/theme"
	"github.com/gosuda/pomchat/timer"
	"github.com/gosuda/pomchat/view"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Join chat rooms with live presence and a pomodoro timer",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

var (
	flagRoom string
	flagView viewOptions
)

func init() {
	chatCmd.Flags().StringVar(&flagRoom, "room", "", "room id to join on start")
	for _, cmd := range []*cobra.Command{chatCmd, boardCmd} {
		flags := cmd.Flags()
		flags.IntVar(&flagView.Port, "port", -1, "optional local HTTP port for the web view (negative to disable)")
		flags.StringSliceVar(&flagView.RelayURLs, "relay-url", nil, "portal relay URL(s) to expose the web view through; repeat or comma-separated (env POMCHAT_RELAY_URLS)")
		flags.StringVar(&flagView.Name, "name", "", "relay display name (env POMCHAT_RELAY_NAME)")
		flags.StringVar(&flagView.CredKey, "cred-key", "", "optional relay credential key (base64 encoded)")
	}
}

// resolveView merges the view flags with the config.
func resolveView(cmd *cobra.Command) viewOptions {
	opts := viewOptions{Port: cfg.ViewPort, RelayURLs: cfg.RelayURLs, Name: cfg.RelayName, CredKey: cfg.CredKey}
	flags := cmd.Flags()
	if flags.Changed("port") {
		opts.Port = flagView.Port
	}
	if flags.Changed("relay-url") {
		opts.RelayURLs = flagView.RelayURLs
	}
	if flags.Changed("name") {
		opts.Name = flagView.Name
	}
	if flags.Changed("cred-key") {
		opts.CredKey = flagView.CredKey
	}
	return opts
}

// chatSession routes console lines to the chat, timer and theme controllers.
type chatSession struct {
	app   *chat.App
	timer *timer.Pomodoro
	theme *theme.Manager
	out   io.Writer
}

const chatHelp = "commands: /rooms, /create, /join <id>, /theme, /timer start|pause|reset, /quit"

// handle runs one input line. It reports whether the session should end.
func (s *chatSession) handle(ctx context.Context, line string) (quit bool) {
	name, arg, isCmd := splitCommand(line)
	if !isCmd {
		err := s.app.SendMessage(ctx, line)
		switch {
		case errors.Is(err, chat.ErrNoRoom):
			fmt.Fprintln(s.out, "join a room first: /join <id>")
		case errors.Is(err, chat.ErrEmptyMessage):
		case err != nil:
			fmt.Fprintf(s.out, "! message not sent: %v\n", err)
		}
		return false
	}

	var err error
	switch name {
	case "quit", "exit":
		return true
	case "rooms":
		_, err = s.app.LoadRooms(ctx)
	case "create":
		err = s.app.CreateRoom(ctx)
	case "join":
		if arg == "" {
			fmt.Fprintln(s.out, "usage: /join <id>")
			return false
		}
		err = s.app.JoinRoom(ctx, arg)
	case "theme":
		s.theme.Toggle()
	case "timer":
		switch arg {
		case "start":
			s.timer.Start()
		case "pause":
			s.timer.Pause()
		case "reset":
			s.timer.Reset()
		default:
			fmt.Fprintln(s.out, "usage: /timer start|pause|reset")
		}
	default:
		fmt.Fprintln(s.out, chatHelp)
	}
	if err != nil {
		fmt.Fprintf(s.out, "! %v\n", err)
	}
	return false
}

func runChat(cmd *cobra.Command, args []string) error {
	sigCtx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	st, err := openClientState(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	conn, err := live.Dial(ctx, live.URLFor(st.client.BaseURL()), st.client.Jar())
	if err != nil {
		return err
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	page := view.NewPage("pomchat")
	display := view.Multi{page, view.NewTerminal(out).Mute(view.RegionTimerSeconds)}
	con := newConsole(cmd.InOrStdin(), out)

	sess := &chatSession{
		app: chat.New(chat.Deps{
			Backend: st.client,
			Live:    conn,
			Display: display,
			Session: st.session,
			Prompt:  con,
		}),
		timer: timer.New(timer.Options{
			Focus:     cfg.FocusDuration,
			Break:     cfg.BreakDuration,
			Live:      conn,
			Display:   display,
			Notify:    timer.Bell{W: out},
			Permitted: cfg.Notify,
		}),
		theme: theme.NewManager(st.kv, display),
		out:   out,
	}
	sess.app.Bind(conn)
	conn.On(live.EventTimerUpdate, func(data json.RawMessage) {
		log.Debug().RawJSON("data", data).Msg("[chat] timer update")
	})

	if _, err := sess.app.LoadRooms(ctx); err != nil {
		return err
	}
	if flagRoom != "" {
		if err := sess.app.JoinRoom(ctx, flagRoom); err != nil {
			return err
		}
	}
	fmt.Fprintln(out, chatHelp)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := conn.Run(gctx)
		if errors.Is(err, live.ErrServerClosed) {
			fmt.Fprintln(out, "! live channel closed by the server: presence and timer sync stopped")
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		for {
			line, err := con.ReadLine(gctx)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
			if sess.handle(gctx, line) {
				return nil
			}
		}
	})
	if opts := resolveView(cmd); opts.enabled() {
		g.Go(func() error { return serveView(gctx, opts, newViewHandler(page)) })
	}

	err = g.Wait()
	sess.timer.Pause()
	st.saveSession()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("[chat] shutdown complete")
	return nil
}
