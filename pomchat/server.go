package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"gosuda.org/portal/portal/core/cryptoops"
	"gosuda.org/portal/sdk"

	"github.com/gosuda/pomchat/view"
)

// viewOptions configures the optional read-only web view of a running session.
type viewOptions struct {
	Port      int
	RelayURLs []string
	Name      string
	CredKey   string
}

func (o viewOptions) enabled() bool { return o.Port >= 0 || len(o.RelayURLs) > 0 }

var markupRegions = map[view.Region]bool{
	view.RegionRooms:    true,
	view.RegionMessages: true,
	view.RegionUsers:    true,
	view.RegionBoard:    true,
}

var textRegions = map[view.Region]bool{
	view.RegionTimerMinutes: true,
	view.RegionTimerSeconds: true,
	view.RegionTimerState:   true,
	view.RegionUsername:     true,
}

// newViewHandler serves the page and its regions.
func newViewHandler(page *view.Page) http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := page.WriteDocument(w); err != nil {
			log.Warn().Err(err).Msg("[view] write document")
		}
	})
	r.Get("/fragments/{region}", func(w http.ResponseWriter, r *http.Request) {
		region := view.Region(chi.URLParam(r, "region"))
		switch {
		case markupRegions[region]:
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(page.Fragment(region)))
		case textRegions[region]:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(page.Text(region)))
		default:
			http.NotFound(w, r)
		}
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// relaySet holds the relay clients and the listeners they opened.
type relaySet struct {
	clients   []*sdk.RDClient
	listeners []net.Listener
}

func (rs *relaySet) Close() {
	for _, ln := range rs.listeners {
		_ = ln.Close()
	}
	for _, c := range rs.clients {
		_ = c.Close()
	}
}

// openRelays registers the view under opts.Name on every relay. All relays share
// one credential so the view keeps a single identity.
func openRelays(opts viewOptions) (*relaySet, error) {
	rs := &relaySet{}
	if len(opts.RelayURLs) == 0 {
		return rs, nil
	}
	cred := sdk.NewCredential()
	if opts.CredKey != "" {
		key, err := base64.StdEncoding.DecodeString(opts.CredKey)
		if err != nil {
			return nil, fmt.Errorf("decode cred key: %w", err)
		}
		fromKey, err := cryptoops.NewCredentialFromPrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("credential from cred key: %w", err)
		}
		cred = fromKey
	}
	for _, relay := range opts.RelayURLs {
		relay = strings.TrimSpace(relay)
		if relay == "" {
			continue
		}
		client, err := sdk.NewClient(func(c *sdk.RDClientConfig) { c.BootstrapServers = []string{relay} })
		if err != nil {
			log.Warn().Err(err).Str("relay", relay).Msg("[view] skipping relay")
			continue
		}
		rs.clients = append(rs.clients, client)
		ln, err := client.Listen(cred, opts.Name, []string{"http/1.1"})
		if err != nil {
			rs.Close()
			return nil, fmt.Errorf("register view on %s: %w", relay, err)
		}
		rs.listeners = append(rs.listeners, ln)
		log.Info().Str("relay", relay).Str("name", opts.Name).Msg("[view] exposed over relay")
	}
	return rs, nil
}

// serveView serves handler on the local port and every relay until ctx is done.
// One http.Server backs all listeners, so a single Shutdown drains them together.
func serveView(ctx context.Context, opts viewOptions, handler http.Handler) error {
	relays, err := openRelays(opts)
	if err != nil {
		return err
	}
	defer relays.Close()

	listeners := append([]net.Listener(nil), relays.listeners...)
	if opts.Port >= 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
		if err != nil {
			return fmt.Errorf("view port %d: %w", opts.Port, err)
		}
		log.Info().Str("addr", ln.Addr().String()).Msg("[view] serving locally")
		listeners = append(listeners, ln)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, ln := range listeners {
		g.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve view on %s: %w", ln.Addr(), err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			log.Warn().Err(err).Msg("[view] shutdown")
		}
		return nil
	})
	return g.Wait()
}
