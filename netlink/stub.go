//go:build !linux

package netlink

func openTransport(conf *Config) (transport, uint32, error) {
	return nil, 0, ErrUnsupported
}
