// Package geo resolves source IPs to country names for reporting. The
// resolver is a collaborator of the aggregator only: a missing or broken
// geolocation database degrades breakdowns to "Unknown" and never affects
// ingestion.
package geo

import (
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"
)

// Unknown is the country value used whenever an IP cannot be resolved.
const Unknown = "Unknown"

// Resolver maps an IP address to a country name, or Unknown.
type Resolver interface {
	Lookup(ip string) string
	Close() error
}

// MMDBResolver resolves countries from a local MaxMind GeoLite2 database.
type MMDBResolver struct {
	reader *geoip2.Reader
}

// OpenMMDB opens the GeoLite2 database at path.
func OpenMMDB(path string) (*MMDBResolver, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geolocation database: %w", err)
	}
	return &MMDBResolver{reader: reader}, nil
}

// Lookup returns the English country name for ip, or Unknown for private,
// unroutable, malformed, or unlisted addresses.
func (r *MMDBResolver) Lookup(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return Unknown
	}
	record, err := r.reader.City(parsed)
	if err != nil {
		return Unknown
	}
	if name := record.Country.Names["en"]; name != "" {
		return name
	}
	return Unknown
}

// Close releases the database handle.
func (r *MMDBResolver) Close() error {
	return r.reader.Close()
}

// Cached wraps a Resolver with an in-memory IP→country cache. The cache is
// rebuildable at any time; it never becomes part of the event record.
type Cached struct {
	mu      sync.RWMutex
	inner   Resolver
	entries map[string]string
}

// NewCached wraps inner with a lookup cache.
func NewCached(inner Resolver) *Cached {
	return &Cached{inner: inner, entries: make(map[string]string)}
}

func (c *Cached) Lookup(ip string) string {
	c.mu.RLock()
	country, ok := c.entries[ip]
	c.mu.RUnlock()
	if ok {
		return country
	}

	country = c.inner.Lookup(ip)
	c.mu.Lock()
	c.entries[ip] = country
	c.mu.Unlock()
	return country
}

func (c *Cached) Close() error {
	return c.inner.Close()
}

// Noop is the degraded resolver used when no geolocation database is
// configured or it fails to open; every lookup is Unknown.
type Noop struct{}

func (Noop) Lookup(string) string { return Unknown }
func (Noop) Close() error         { return nil }
