package domain

import (
	"fmt"
	"net"
	"regexp"
	"strings"
)

// RecordType identifies the kind of DNS resource record a change
// applies to. The reverse-zone helpers only ever branch on whether a
// record is a PTR; the other constants exist so callers outside the
// core can describe a record set without inventing their own enum.
type RecordType string

const (
	TypeA     RecordType = "A"
	TypeAAAA  RecordType = "AAAA"
	TypeCNAME RecordType = "CNAME"
	TypeMX    RecordType = "MX"
	TypeTXT   RecordType = "TXT"
	TypeNS    RecordType = "NS"
	TypeSOA   RecordType = "SOA"
	TypePTR   RecordType = "PTR"
	TypeSRV   RecordType = "SRV"
)

// ipv6NibbleRegex matches exactly 32 lowercase-or-uppercase hex nibbles
// each followed by a dot, ending in ip6.arpa. — the full expansion of a
// 128-bit address as an ip6.arpa PTR owner name. Compiled once, reused.
var ipv6NibbleRegex = regexp.MustCompile(`(?i)^([0-9a-f]\.){32}ip6\.arpa\.$`)

func invalidRequestf(format string, args ...interface{}) error {
	return ErrInvalidRequest{Message: fmt.Sprintf(format, args...)}
}

func splitDropEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func reversed(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[len(ss)-1-i] = s
	}
	return out
}

// extractIPv4ZoneLabels strips the in-addr.arpa. suffix from a zone
// name, splits the remainder on dots, drops empty labels, and reverses
// the result into network order (highest-order octet first). If the
// zone encodes a classless delegation (contains "/"), the trailing
// label still carries the "<octet>/<prefix>" suffix — callers that
// need a true octet list must drop or split it themselves.
func extractIPv4ZoneLabels(zoneName string) []string {
	trimmed := strings.TrimSuffix(zoneName, ipv4ReverseSuffix)
	return reversed(splitDropEmpty(trimmed, "."))
}

// ConvertPTRToIPv4 reconstructs the dotted-quad IPv4 address a PTR
// record name represents inside an IPv4 reverse zone, per §4.3: the
// zone's extracted octets (minus the classless-delegation label, if
// any) form the high-order octets; the record name's own labels,
// reversed, form the low-order octets.
func ConvertPTRToIPv4(zoneName, recordName string) string {
	zoneLabels := extractIPv4ZoneLabels(zoneName)
	if strings.Contains(zoneName, "/") && len(zoneLabels) > 0 {
		zoneLabels = zoneLabels[:len(zoneLabels)-1]
	}
	recordLabels := reversed(splitDropEmpty(recordName, "."))

	all := make([]string, 0, len(zoneLabels)+len(recordLabels))
	all = append(all, zoneLabels...)
	all = append(all, recordLabels...)
	return strings.Join(all, ".")
}

// ZoneAsIPv4CIDR derives the CIDR block an IPv4 reverse zone name
// encodes. Classful zones (no "/") are padded to four octets with
// trailing ".0"s and given the implied prefix length (/8, /16, /24 for
// 1, 2, 3 extracted octets). Classless-delegation zones combine the
// head octets, right-padded with ".0" to four octets, with the
// explicit prefix carried on the trailing label. Zero or more than
// three extracted octets with no "/" is malformed and returns an error.
func ZoneAsIPv4CIDR(zoneName string) (string, error) {
	labels := extractIPv4ZoneLabels(zoneName)

	if strings.Contains(zoneName, "/") {
		if len(labels) == 0 {
			return "", fmt.Errorf("zone %q has no classless-delegation label", zoneName)
		}
		last := labels[len(labels)-1]
		parts := strings.SplitN(last, "/", 2)
		if len(parts) != 2 || parts[1] == "" {
			return "", fmt.Errorf("zone %q has a malformed classless-delegation mask", zoneName)
		}
		head := labels[:len(labels)-1]
		if len(head) > 3 {
			return "", fmt.Errorf("zone %q has too many octets for a classless delegation", zoneName)
		}
		padded := append(append([]string{}, head...), repeat("0", 4-len(head))...)
		return strings.Join(padded, ".") + "/" + parts[1], nil
	}

	switch len(labels) {
	case 1:
		return labels[0] + ".0.0.0/8", nil
	case 2:
		return labels[0] + "." + labels[1] + ".0.0/16", nil
	case 3:
		return labels[0] + "." + labels[1] + "." + labels[2] + ".0/24", nil
	default:
		return "", fmt.Errorf("zone %q does not encode a valid classful reverse CIDR (got %d octets)", zoneName, len(labels))
	}
}

func repeat(s string, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

// ConvertPTRToIPv6 reconstructs the full IPv6 literal (colon-separated,
// 4-nibble groups) that a PTR record name represents inside an ip6.arpa
// reverse zone.
func ConvertPTRToIPv6(zoneName, recordName string) string {
	zoneNibbles := reversed(splitDropEmpty(strings.TrimSuffix(zoneName, ipv6ReverseSuffix), "."))
	recordNibbles := reversed(splitDropEmpty(recordName, "."))

	all := make([]string, 0, len(zoneNibbles)+len(recordNibbles))
	all = append(all, zoneNibbles...)
	all = append(all, recordNibbles...)

	hex := strings.Join(all, "")
	var groups []string
	for i := 0; i < len(hex); i += 4 {
		end := i + 4
		if end > len(hex) {
			end = len(hex)
		}
		groups = append(groups, hex[i:end])
	}
	return strings.Join(groups, ":")
}

// ptrIsInZoneMessage is the single, stable wording every reverse-zone
// rejection uses, per §4.3's "swallowed and reported as the same
// InvalidRequest" rule — arithmetic failures, CIDR misses, and
// zones that are neither IPv4 nor IPv6 reverse zones all produce it.
func ptrIsInZoneMessage(recordName string, zone Zone) error {
	return invalidRequestf("RecordSet %s does not specify a valid IP address in zone %s", recordName, zone.Name)
}

// PtrIsInZone decides whether recordName belongs in zone. Non-PTR
// records are always accepted (the check only constrains PTR owner
// names). Any parse or arithmetic failure along the way — malformed
// CIDR masks, non-IP-shaped record names, zones that are neither IPv4
// nor IPv6 reverse zones — is caught here and reported as the same
// ErrInvalidRequest, never as an infrastructural error: the input is
// user-supplied, so a bad shape is the caller's mistake, not a 5xx.
func PtrIsInZone(zone Zone, recordName string, recordType RecordType) error {
	if recordType != TypePTR {
		return nil
	}

	switch {
	case zone.IsIPv4():
		return ptrIsInIPv4Zone(zone, recordName)
	case zone.IsIPv6():
		return ptrIsInIPv6Zone(zone, recordName)
	default:
		return ptrIsInZoneMessage(recordName, zone)
	}
}

func ptrIsInIPv4Zone(zone Zone, recordName string) error {
	cidr, err := ZoneAsIPv4CIDR(zone.Name)
	if err != nil {
		return ptrIsInZoneMessage(recordName, zone)
	}
	addrStr := ConvertPTRToIPv4(zone.Name, recordName)
	addr := net.ParseIP(addrStr)
	if addr == nil || addr.To4() == nil {
		return ptrIsInZoneMessage(recordName, zone)
	}
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return ptrIsInZoneMessage(recordName, zone)
	}
	if !network.Contains(addr) {
		return ptrIsInZoneMessage(recordName, zone)
	}
	return nil
}

func ptrIsInIPv6Zone(zone Zone, recordName string) error {
	full := recordName + "." + zone.Name
	if !ipv6NibbleRegex.MatchString(full) {
		return ptrIsInZoneMessage(recordName, zone)
	}
	return nil
}
