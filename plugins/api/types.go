package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/scitags/rtnl/internal/qdisc"
	"github.com/scitags/rtnl/netlink"
)

const (
	JSON_PRETTY_INDENT string = "    "
)

// Source is satisfied by *netlink.Session.
type Source interface {
	Links(ctx context.Context, tmpl netlink.LinkRecord) (netlink.List[netlink.LinkRecord], error)
	Routes(ctx context.Context, tmpl netlink.RouteRecord) (netlink.List[netlink.RouteRecord], error)
}

// QdiscLister is satisfied by *qdisc.Client.
type QdiscLister interface {
	List(ifindex uint32) ([]qdisc.Qdisc, error)
}

type rootResponse struct {
	ApiRoutes []*echo.Route `json:"apiRoutes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// linkResponse adds the rendered link-layer addresses, which LinkRecord
// keeps raw.
type linkResponse struct {
	netlink.LinkRecord
	Up        bool   `json:"up"`
	TypeName  string `json:"typeName"`
	Address   string `json:"address,omitempty"`
	Broadcast string `json:"broadcast,omitempty"`
}

type extendedContext struct {
	echo.Context
	apiRoutes []*echo.Route
	src       Source
	qdiscs    QdiscLister
}
