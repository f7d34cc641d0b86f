package utils

import "strings"

const maxEchoedAddress = 100

var lineBreaks = strings.NewReplacer("\n", "", "\r", "")

// SanitizeAddress strips line breaks and truncates addr before it is echoed
// back in an error message.
func SanitizeAddress(addr string) string {
	addr = lineBreaks.Replace(addr)
	if len(addr) > maxEchoedAddress {
		addr = addr[:maxEchoedAddress]
	}
	return addr
}

// MaskRecipients renders addresses for logs, "kaisa@hel.fi" -> "k***@hel.fi".
func MaskRecipients(addrs []string) string {
	masked := make([]string, 0, len(addrs))
	for _, a := range addrs {
		local, domain, ok := strings.Cut(SanitizeAddress(a), "@")
		switch {
		case !ok:
			masked = append(masked, "***")
		case local == "":
			masked = append(masked, "***@"+domain)
		default:
			masked = append(masked, local[:1]+"***@"+domain)
		}
	}
	return strings.Join(masked, ", ")
}
