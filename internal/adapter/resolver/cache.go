package resolver

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
)

// IPResolver matches (*net.Resolver).LookupIP
type IPResolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// DialFunc matches http.Transport.DialContext
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Cache memoizes IPv4 lookups for the lifetime of a run.
// Entries are never evicted, so a long-lived process would need expiry.
type Cache struct {
	base    IPResolver
	entries *xsync.Map[string, string]
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache in front of base. A nil base uses net.DefaultResolver.
func New(base IPResolver) *Cache {
	if base == nil {
		base = net.DefaultResolver
	}
	return &Cache{
		base:    base,
		entries: xsync.NewMap[string, string](),
	}
}

// LookupIPv4 returns an IPv4 address for host.
// IP literals are returned unchanged and never cached. Failed lookups
// are not cached either.
func (c *Cache) LookupIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	if addr, ok := c.entries.Load(host); ok {
		c.hits.Add(1)
		return addr, nil
	}
	c.misses.Add(1)

	ips, err := c.base.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", err
	}

	var addr string
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			addr = v4.String()
			break
		}
	}
	if addr == "" {
		return "", &net.DNSError{Err: "no IPv4 address", Name: host, IsNotFound: true}
	}

	// A concurrent miss may have stored first; keep its value.
	actual, _ := c.entries.LoadOrStore(host, addr)
	return actual, nil
}

// DialContext returns a dial function that resolves hosts through the cache
// and always dials tcp4.
func (c *Cache) DialContext(dialer *net.Dialer) DialFunc {
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid dial address %q: %w", addr, err)
		}
		ip, err := c.LookupIPv4(ctx, host)
		if err != nil {
			return nil, err
		}
		return dialer.DialContext(ctx, "tcp4", net.JoinHostPort(ip, port))
	}
}

// Len returns the number of cached hosts
func (c *Cache) Len() int {
	return c.entries.Size()
}

// Hits returns the number of lookups served from the cache
func (c *Cache) Hits() int64 {
	return c.hits.Load()
}

// Misses returns the number of lookups that went to the base resolver
func (c *Cache) Misses() int64 {
	return c.misses.Load()
}
