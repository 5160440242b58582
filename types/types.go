package types

import (
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Family is an address family as carried on rtnetlink messages.
type Family int

const (
	Unspec Family = unix.AF_UNSPEC
	IPv4   Family = unix.AF_INET
	IPv6   Family = unix.AF_INET6
)

var (
	familyMap = map[string]Family{
		"UNSPEC": Unspec,
		"IPV4":   IPv4,
		"INET":   IPv4,
		"IPV6":   IPv6,
		"INET6":  IPv6,
	}

	ylimafMap = map[Family]string{
		Unspec: "unspec",
		IPv4:   "ipv4",
		IPv6:   "ipv6",
	}
)

func (f Family) String() string {
	if s, ok := ylimafMap[f]; ok {
		return s
	}
	return strconv.Itoa(int(f))
}

func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Bits returns the address length in bits for IPv4 and IPv6 and 0 otherwise.
func (f Family) Bits() int {
	switch f {
	case IPv4:
		return 32
	case IPv6:
		return 128
	}
	return 0
}

// Other returns the opposite IP family. Anything but IPv6 maps to IPv6.
func (f Family) Other() Family {
	if f == IPv6 {
		return IPv4
	}
	return IPv6
}

func ParseFamily(family string) (Family, bool) {
	f, ok := familyMap[strings.ToUpper(family)]
	return f, ok
}
