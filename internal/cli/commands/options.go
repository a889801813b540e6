package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/carrent-dev/carrent/internal/cli/auth"
	"github.com/carrent-dev/carrent/internal/cli/client"
	"github.com/carrent-dev/carrent/internal/cli/config"
)

// Options carries the state shared by all commands
type Options struct {
	// Server is a gateway alias from carrent.json or a URL
	Server string
	Store  auth.SessionStore
	Out    io.Writer
}

// DefaultOptions uses the OS keyring and stdout
func DefaultOptions() *Options {
	return &Options{Store: auth.Default, Out: os.Stdout}
}

func (o *Options) printf(format string, args ...any) {
	fmt.Fprintf(o.Out, format, args...)
}

// gateway resolves the selected gateway and returns a client for it
func (o *Options) gateway() (*config.Gateway, *client.Client, error) {
	gw, err := config.Resolve(o.Server)
	if err != nil {
		return nil, nil, err
	}
	c := client.New(gw.URL)
	c.SetSessionCookie(gw.Cookie)
	return gw, c, nil
}

// loadSession returns the stored session for gw. One already past its
// expiry is forgotten without asking the gateway.
func (o *Options) loadSession(gw *config.Gateway) (*auth.Session, error) {
	session, err := o.Store.Load(gw.URL)
	if err != nil {
		return nil, err
	}
	if session.Expired(time.Now()) {
		_ = o.Store.Delete(gw.URL)
		return nil, auth.ErrSessionExpired
	}
	return session, nil
}

// saveRefreshed stores the session the gateway slid forward, if any
func (o *Options) saveRefreshed(gw *config.Gateway, c *client.Client) {
	token := c.RefreshedToken()
	if token == "" {
		return
	}
	session := &auth.Session{Token: token, ExpiresAt: c.RefreshedExpiry()}
	if err := o.Store.Save(gw.URL, session); err != nil {
		o.printf("Warning: failed to store refreshed session: %v\n", err)
	}
}
