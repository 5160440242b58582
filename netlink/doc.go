// Package netlink queries and modifies the kernel's links and IP routes over
// an rtnetlink socket (AF_NETLINK, NETLINK_ROUTE). Be sure to check
// netlink(7) and rtnetlink(7) for the protocol as a whole.
//
// Requests are built by hand so that the wire image is exactly what the
// kernel expects: an nlmsghdr, the family header (rtmsg or ifinfomsg) and a
// chain of 4-byte aligned attributes, all in host byte order. Replies are
// walked with github.com/mdlayher/netlink's AttributeDecoder.
//
// Dumps are filtered on our side: the kernel ignores most of the request's
// rtmsg when NLM_F_DUMP is set [0], so the filter generated from a template
// record is applied to every decoded message instead. Fields holding their
// sentinel value (see DefaultRouteRecord and DefaultLinkRecord) match
// anything.
//
// Link flags are combined with the current ones through the change mask as
// done in do_setlink [1]. Route tables beyond 255 only travel in RTA_TABLE
// given rtm_table is a single byte [2].
//
// 0: https://elixir.bootlin.com/linux/v6.12.4/source/net/ipv4/fib_frontend.c#L1002
//
// 1: https://elixir.bootlin.com/linux/v6.12.4/source/net/core/rtnetlink.c#L1095
//
// 2: https://elixir.bootlin.com/linux/v6.12.4/source/include/uapi/linux/rtnetlink.h#L219
package netlink
