// Package discovery advertises and finds sharedclip servers over mDNS.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/grandcat/zeroconf"
)

const (
	ServiceType = "_sharedclip._tcp"
	Domain      = "local."
)

// Server is a sharedclip server found on the local network.
type Server struct {
	Instance string
	Host     string
	Addr     string // host:port suitable for dialing
	Version  string
}

// Advertisement is a running mDNS registration.
type Advertisement struct {
	srv *zeroconf.Server
}

// Advertise announces a server named instance listening on port.
func Advertise(instance string, port int, version string) (*Advertisement, error) {
	txt := []string{"version=" + version, "api=http,grpc"}
	srv, err := zeroconf.Register(instance, ServiceType, Domain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("mdns register: %w", err)
	}
	slog.Info("mdns advertising", "instance", instance, "service", ServiceType, "port", port)
	return &Advertisement{srv: srv}, nil
}

// Shutdown withdraws the announcement.
func (a *Advertisement) Shutdown() {
	if a == nil || a.srv == nil {
		return
	}
	a.srv.Shutdown()
}

// Browse collects servers until ctx is done. Entries without a usable
// address are skipped; duplicates are reported once.
func Browse(ctx context.Context) ([]Server, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, ServiceType, Domain, entries); err != nil {
		return nil, fmt.Errorf("mdns browse: %w", err)
	}

	var found []Server
	seen := make(map[string]bool)
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return found, nil
			}
			s, ok := ParseEntry(e)
			if !ok || seen[s.Instance+"|"+s.Addr] {
				continue
			}
			seen[s.Instance+"|"+s.Addr] = true
			slog.Debug("mdns found", "instance", s.Instance, "addr", s.Addr)
			found = append(found, s)
		case <-ctx.Done():
			return found, nil
		}
	}
}

// ParseEntry converts a zeroconf entry into a Server, preferring IPv4.
func ParseEntry(e *zeroconf.ServiceEntry) (Server, bool) {
	if e == nil || e.Port == 0 {
		return Server{}, false
	}
	var ip net.IP
	switch {
	case len(e.AddrIPv4) > 0:
		ip = e.AddrIPv4[0]
	case len(e.AddrIPv6) > 0:
		ip = e.AddrIPv6[0]
	default:
		return Server{}, false
	}

	s := Server{
		Instance: e.Instance,
		Host:     e.HostName,
		Addr:     net.JoinHostPort(ip.String(), strconv.Itoa(e.Port)),
	}
	for _, kv := range e.Text {
		if v, ok := strings.CutPrefix(kv, "version="); ok {
			s.Version = v
		}
	}
	return s, true
}
