package cfg

import (
	"net"
	"strconv"

	"github.com/kaushalagrawal2/een1097-assignment2/internal"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/app/apps"
)

// APIAddrCfg is configuration for the control API HTTP address.
type APIAddrCfg struct {
	addr string
}

// NewAPIAddrCfg creates a new APIAddrCfg from the given host and port.
func NewAPIAddrCfg(host string, port uint16) *APIAddrCfg {
	return &APIAddrCfg{
		addr: net.JoinHostPort(host, strconv.Itoa(int(port))),
	}
}

// APIAddrFromEnv creates a new APIAddrCfg from the current environment.
func APIAddrFromEnv() *APIAddrCfg {
	return NewAPIAddrCfg(internal.Host, internal.APIPort)
}

// ApplyServerApp applies the APIAddrCfg to a ServerApp.
func (cfg APIAddrCfg) ApplyServerApp(app *apps.ServerApp) error {
	app.APIAddr = cfg.addr
	return nil
}
