package host

import (
	"fmt"
	"syscall"

	gnet "github.com/shirou/gopsutil/net"
)

// ListeningSocket is one listening endpoint on the host.
type ListeningSocket struct {
	Proto string
	Addr  string
	Port  uint32
	PID   int32
}

// ListeningSockets returns the sockets listening on port. UDP sockets have no
// LISTEN state so any bound UDP socket on the port is included.
func ListeningSockets(port int) ([]ListeningSocket, error) {
	conns, err := gnet.Connections("inet")
	if err != nil {
		return nil, fmt.Errorf("listing connections: %w", err)
	}
	var out []ListeningSocket
	for _, c := range conns {
		if c.Laddr.Port != uint32(port) {
			continue
		}
		switch c.Type {
		case syscall.SOCK_STREAM:
			if c.Status != "LISTEN" {
				continue
			}
			out = append(out, ListeningSocket{Proto: "tcp", Addr: c.Laddr.IP, Port: c.Laddr.Port, PID: c.Pid})
		case syscall.SOCK_DGRAM:
			out = append(out, ListeningSocket{Proto: "udp", Addr: c.Laddr.IP, Port: c.Laddr.Port, PID: c.Pid})
		}
	}
	return out, nil
}
