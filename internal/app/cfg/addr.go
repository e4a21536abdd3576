// Package cfg implements configuration objects for the cobot apps.
//
// A configuration object is implemented once and can be applied to
// multiple app types. Adding support for a new type only requires
// another ApplyX method on the object.
package cfg

import (
	"net"
	"strconv"

	"github.com/kaushalagrawal2/een1097-assignment2/internal"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/app/apps"
)

// AddrCfg is configuration for the hub TCP address.
type AddrCfg struct {
	addr string
}

// NewAddrCfg creates a new AddrCfg from the given host and port.
func NewAddrCfg(host string, port uint16) *AddrCfg {
	return &AddrCfg{
		addr: net.JoinHostPort(host, strconv.Itoa(int(port))),
	}
}

// AddrFromEnv creates a new AddrCfg from the current environment.
func AddrFromEnv() *AddrCfg {
	return NewAddrCfg(internal.Host, internal.Port)
}

// ApplyServerApp applies the AddrCfg to a ServerApp.
func (cfg AddrCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.ListenAddr = cfg.addr
	return nil
}

// ApplyClientApp applies the AddrCfg to a ClientApp.
func (cfg AddrCfg) ApplyClientApp(app *apps.ClientApp) error {
	app.ServerAddr = cfg.addr
	return nil
}
