package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/gosuda/pomchat/board"
	"github.com/gosuda/pomchat/view"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Follow the public message board",
	Args:  cobra.NoArgs,
	RunE:  runBoard,
}

const boardHelp = "commands: /nick <name>, /quit; anything else is posted"

type boardSession struct {
	board  *board.Board
	prompt view.Prompter
	out    io.Writer
}

func (s *boardSession) handle(ctx context.Context, line string) (quit bool) {
	name, arg, isCmd := splitCommand(line)
	if !isCmd {
		if err := s.board.Send(ctx, line); err != nil && !errors.Is(err, board.ErrEmptyMessage) {
			fmt.Fprintf(s.out, "! message not sent: %v\n", err)
		}
		return false
	}
	switch name {
	case "quit", "exit":
		return true
	case "nick":
		if arg == "" && s.prompt != nil {
			answer, err := s.prompt.Prompt(ctx, "Enter new username:")
			if err != nil {
				return false
			}
			arg = strings.TrimSpace(answer)
		}
		if arg == "" {
			return false
		}
		err := s.board.ChangeUsername(ctx, arg)
		if err != nil && !errors.Is(err, board.ErrInvalidUsername) {
			fmt.Fprintf(s.out, "! username not changed: %v\n", err)
		}
	default:
		fmt.Fprintln(s.out, boardHelp)
	}
	return false
}

func runBoard(cmd *cobra.Command, args []string) error {
	sigCtx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	st, err := openClientState(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	page := view.NewPage("pomchat board")
	con := newConsole(cmd.InOrStdin(), out)
	sess := &boardSession{
		board: board.New(board.Deps{
			Backend:  st.client,
			Display:  view.Multi{page, view.NewTerminal(out)},
			Session:  st.session,
			Alert:    con,
			Interval: cfg.PollInterval,
		}),
		prompt: con,
		out:    out,
	}
	fmt.Fprintln(out, boardHelp)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sess.board.Run(gctx) })
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

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("[board] shutdown complete")
	return nil
}
