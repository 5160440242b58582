// Package api serves links, routes and qdiscs as read-only JSON.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type ApiPlugin struct {
	Config

	server *echo.Echo

	src    Source
	qdiscs QdiscLister
}

// New builds the plugin. qdiscs may be nil, in which case /qdiscs answers
// with a 503.
func New(conf *Config, src Source, qdiscs QdiscLister) *ApiPlugin {
	p := &ApiPlugin{src: src, qdiscs: qdiscs}
	if conf != nil {
		p.Config = *conf
	}
	return p
}

func (p *ApiPlugin) String() string {
	return "api"
}

func (p *ApiPlugin) Init() error {
	slog.Debug("initialising the api plugin")

	if p.src == nil {
		return fmt.Errorf("no netlink source for the api plugin")
	}

	p.server = echo.New()

	// Configure the middleware for extending the context of the
	// different handlers.
	p.server.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&extendedContext{c, p.server.Routes(), p.src, p.qdiscs})
		}
	})

	// Configure the methods for each path
	p.server.GET("/", handleRoot)
	p.server.GET("/links", handleLinks)
	p.server.GET("/links/:name", handleLink)
	p.server.GET("/routes", handleRoutes)
	p.server.GET("/qdiscs", handleQdiscs)
	p.server.GET("/qdiscs/:ifindex", handleQdiscs)

	// Prevent the banner from showing up in the log
	p.server.HideBanner = true
	p.server.HidePort = true

	return nil
}

func (p *ApiPlugin) Handler() http.Handler {
	return p.server
}

// Run serves until ctx is done.
func (p *ApiPlugin) Run(ctx context.Context) {
	slog.Debug("running the api plugin", "addr", p.BindAddress, "port", p.BindPort)

	go func() {
		if err := p.server.Start(fmt.Sprintf("%s:%d", p.BindAddress, p.BindPort)); err != http.ErrServerClosed {
			slog.Error("couldn't start the API server", "err", err)
		}
	}()

	// Simply wait until we're done
	<-ctx.Done()
	slog.Debug("cleanly exiting the api plugin")
}

func (p *ApiPlugin) Cleanup() error {
	slog.Debug("cleaning up the api plugin")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down the API server: %w", err)
	}
	return nil
}
