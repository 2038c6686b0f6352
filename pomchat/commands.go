package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gosuda/pomchat/auth"
	"github.com/gosuda/pomchat/theme"
	"github.com/gosuda/pomchat/view"
)

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Sign in, registering the username when it is new",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the server session",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

var themeCmd = &cobra.Command{
	Use:       "theme [toggle]",
	Short:     "Show or flip the light/dark theme",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"toggle"},
	RunE:      runTheme,
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openClientState(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	con := newConsole(cmd.InOrStdin(), cmd.OutOrStdout())
	mgr := auth.NewManager(st.client, con, con, con)
	if len(args) == 1 {
		err = mgr.Login(ctx, args[0])
	} else {
		err = mgr.PromptLogin(ctx)
	}
	if err != nil {
		return err
	}
	if con.Location() != auth.PathChat {
		return nil
	}
	st.saveSession()
	if me, err := st.client.Me(ctx); err == nil && me.Username != "" {
		if err := st.session.SetUsername(me.Username); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed in. Run `pomchat chat` to join a room.")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openClientState(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	con := newConsole(cmd.InOrStdin(), cmd.OutOrStdout())
	if err := auth.NewManager(st.client, con, con, con).Logout(ctx); err != nil {
		return err
	}
	st.saveSession()
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	st, err := openClientState(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	me, err := st.client.Me(ctx)
	if err != nil {
		return fmt.Errorf("whoami: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (id %s)\n", me.Username, me.ID)
	if me.FocusState != "" {
		fmt.Fprintf(out, "state: %s\n", me.FocusState)
	}
	fmt.Fprintf(out, "pomodoros: %s, focus time: %s min\n",
		humanize.Comma(int64(me.PomodorosCompleted)), humanize.Comma(int64(me.TotalFocusTime)))
	return nil
}

func runTheme(cmd *cobra.Command, args []string) error {
	st, err := openClientState(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	mgr := theme.NewManager(st.kv, view.NewPage("pomchat"))
	current := mgr.Current()
	if len(args) == 1 {
		current = mgr.Toggle()
	}
	fmt.Fprintln(cmd.OutOrStdout(), current)
	return nil
}
