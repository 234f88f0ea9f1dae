package acl

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// cidr is one parsed allow-list entry.
type cidr struct {
	network *net.IPNet
	raw     string
}

// errPrefixOutOfRange marks a CIDR whose address parsed but whose prefix
// length is outside the per-family range.
var errPrefixOutOfRange = errors.New("prefix length out of range")

// parseCIDR parses a single acl.restrictip entry. IPv4 accepts
// "A.B.C.D[/N]" with default /32 and valid N in [8,32]; IPv6 accepts
// hex-colon form with default /128 and valid N in [8,128].
func parseCIDR(entry string) (cidr, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return cidr{}, fmt.Errorf("empty CIDR entry")
	}

	base := entry
	bits := -1
	if idx := strings.LastIndex(entry, "/"); idx != -1 {
		base = entry[:idx]
		n, err := strconv.Atoi(entry[idx+1:])
		if err != nil {
			return cidr{}, fmt.Errorf("malformed prefix length in %q: %w", entry, err)
		}
		bits = n
	}

	ip := net.ParseIP(base)
	if ip == nil {
		return cidr{}, fmt.Errorf("malformed IP address in %q", entry)
	}

	var totalBits int
	if v4 := ip.To4(); v4 != nil {
		ip = v4
		totalBits = 32
		if bits == -1 {
			bits = 32
		}
		if bits < 8 || bits > 32 {
			return cidr{}, fmt.Errorf("%w: %d not in [8,32] for IPv4 CIDR %q", errPrefixOutOfRange, bits, entry)
		}
	} else {
		totalBits = 128
		if bits == -1 {
			bits = 128
		}
		if bits < 8 || bits > 128 {
			return cidr{}, fmt.Errorf("%w: %d not in [8,128] for IPv6 CIDR %q", errPrefixOutOfRange, bits, entry)
		}
	}

	mask := net.CIDRMask(bits, totalBits)
	network := &net.IPNet{IP: ip.Mask(mask), Mask: mask}

	return cidr{network: network, raw: entry}, nil
}

// matches reports whether ip's first N bits (network order) agree with the
// CIDR's base address, per the invariant in the testable properties.
func (c cidr) matches(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil && c.network.IP.To4() != nil {
		return c.network.Contains(v4)
	}
	if ip.To4() == nil && c.network.IP.To4() == nil {
		return c.network.Contains(ip)
	}
	return false
}

// ParseAllowList parses the comma-separated acl.restrictip value. Entries
// whose prefix length is out of range are collected as warnings (caller
// decides whether to surface them) and skipped; an entry that does not
// parse at all is fatal — signaled by returning a non-nil error with a nil
// list.
func ParseAllowList(raw string) (list []cidr, warnings []string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil, nil
	}

	entries := strings.Split(raw, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		c, perr := parseCIDR(entry)
		if errors.Is(perr, errPrefixOutOfRange) {
			warnings = append(warnings, perr.Error())
			continue
		}
		if perr != nil {
			return nil, warnings, fmt.Errorf("unparsable CIDR in restrictip list: %w", perr)
		}
		list = append(list, c)
	}

	return list, warnings, nil
}

// IPAllowed reports whether clientIP matches any entry in list. An empty
// list means "no restriction configured" and always allows.
func IPAllowed(list []cidr, clientIP string) (bool, error) {
	if len(list) == 0 {
		return true, nil
	}

	ip := net.ParseIP(clientIP)
	if ip == nil {
		return false, fmt.Errorf("malformed client IP %q", clientIP)
	}

	for _, c := range list {
		if c.matches(ip) {
			return true, nil
		}
	}
	return false, nil
}
