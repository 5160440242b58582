package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/scitags/rtnl/netlink"
	"github.com/scitags/rtnl/types"
)

func handleRoot(c echo.Context) error {
	cc := c.(*extendedContext)
	return c.JSONPretty(http.StatusOK, &rootResponse{
		ApiRoutes: cc.apiRoutes,
	}, JSON_PRETTY_INDENT)
}

func fail(c echo.Context, code int, err error) error {
	return c.JSONPretty(code, &errorResponse{Error: err.Error()}, JSON_PRETTY_INDENT)
}

// status maps parameter errors onto 400 and everything else onto 500.
func status(err error) int {
	if errors.Is(err, netlink.ErrInvalidParameter) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func newLinkResponse(l netlink.LinkRecord) linkResponse {
	return linkResponse{
		LinkRecord: l,
		Up:         l.Up(),
		TypeName:   netlink.LinkTypeName(l.Type),
		Address:    l.HardwareAddr(),
		Broadcast:  l.BroadcastAddr(),
	}
}

func handleLinks(c echo.Context) error {
	cc := c.(*extendedContext)

	links, err := cc.src.Links(c.Request().Context(), netlink.DefaultLinkRecord())
	if err != nil {
		return fail(c, status(err), err)
	}

	resp := make([]linkResponse, 0, links.Len())
	for _, l := range links {
		resp = append(resp, newLinkResponse(l))
	}

	return c.JSONPretty(http.StatusOK, resp, JSON_PRETTY_INDENT)
}

func handleLink(c echo.Context) error {
	cc := c.(*extendedContext)

	tmpl := netlink.DefaultLinkRecord()
	tmpl.Name = c.Param("name")
	if len(tmpl.Name) >= netlink.IFNAMSIZ {
		return fail(c, http.StatusBadRequest, fmt.Errorf("%w: link name %q is too long", netlink.ErrInvalidParameter, tmpl.Name))
	}

	links, err := cc.src.Links(c.Request().Context(), tmpl)
	if err != nil {
		return fail(c, status(err), err)
	}
	if links.Len() == 0 {
		return fail(c, http.StatusNotFound, fmt.Errorf("no link named %q", tmpl.Name))
	}

	return c.JSONPretty(http.StatusOK, newLinkResponse(links[0]), JSON_PRETTY_INDENT)
}

// handleRoutes accepts the family and table query parameters. Both families
// are dumped when the former is missing.
func handleRoutes(c echo.Context) error {
	cc := c.(*extendedContext)

	families := []types.Family{types.IPv4, types.IPv6}
	if f := c.QueryParam("family"); f != "" {
		family, ok := types.ParseFamily(f)
		if !ok || family == types.Unspec {
			return fail(c, http.StatusBadRequest, fmt.Errorf("%w: family %q", netlink.ErrInvalidParameter, f))
		}
		families = []types.Family{family}
	}

	table := types.RT_TABLE_UNSPEC
	if t := c.QueryParam("table"); t != "" {
		tt, ok := types.ParseRouteTable(t)
		if !ok {
			return fail(c, http.StatusBadRequest, fmt.Errorf("%w: table %q", netlink.ErrInvalidParameter, t))
		}
		table = tt
	}

	resp := []netlink.RouteRecord{}
	for _, family := range families {
		tmpl := netlink.DefaultRouteRecord()
		tmpl.Family = family
		tmpl.Table = table

		routes, err := cc.src.Routes(c.Request().Context(), tmpl)
		if err != nil {
			return fail(c, status(err), err)
		}
		resp = append(resp, routes...)
	}

	return c.JSONPretty(http.StatusOK, resp, JSON_PRETTY_INDENT)
}

func handleQdiscs(c echo.Context) error {
	cc := c.(*extendedContext)

	if cc.qdiscs == nil {
		return fail(c, http.StatusServiceUnavailable, errors.New("qdisc listing is disabled"))
	}

	// Index 0 lists the qdiscs of every link.
	var ifindex uint64
	if p := c.Param("ifindex"); p != "" {
		var err error
		if ifindex, err = strconv.ParseUint(p, 10, 32); err != nil || ifindex == 0 {
			return fail(c, http.StatusBadRequest, fmt.Errorf("%w: ifindex %q", netlink.ErrInvalidParameter, p))
		}
	}

	qdiscs, err := cc.qdiscs.List(uint32(ifindex))
	if err != nil {
		return fail(c, http.StatusInternalServerError, err)
	}

	return c.JSONPretty(http.StatusOK, qdiscs, JSON_PRETTY_INDENT)
}
