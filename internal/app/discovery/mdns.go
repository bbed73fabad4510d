package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/grandcat/zeroconf"
)

// browseFunc collects mDNS entries for a service type until timeout.
type browseFunc func(ctx context.Context, service string, timeout time.Duration) ([]*zeroconf.ServiceEntry, error)

func browseMDNS(ctx context.Context, service string, timeout time.Duration) ([]*zeroconf.ServiceEntry, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize resolver")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, service, "local.", entries); err != nil {
		return nil, errors.Wrapf(err, "failed to browse %s", service)
	}

	var found []*zeroconf.ServiceEntry
	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return found, nil
			}
			if entry != nil && len(entry.AddrIPv4) > 0 {
				found = append(found, entry)
			}
		case <-ctx.Done():
			return found, nil
		}
	}
}

// txtValue returns the value of key=value from a TXT record list.
func txtValue(text []string, key string) string {
	prefix := key + "="
	for _, t := range text {
		if strings.HasPrefix(t, prefix) {
			return strings.TrimPrefix(t, prefix)
		}
	}
	return ""
}

// unescapeInstance undoes DNS-SD escaping of spaces and dots in instance names.
func unescapeInstance(name string) string {
	r := strings.NewReplacer(`\ `, " ", `\.`, ".", `\\`, `\`)
	return r.Replace(name)
}
