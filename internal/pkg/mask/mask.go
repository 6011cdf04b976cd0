package mask

import "strings"

// Email masks the local part of an address, revealing only its first and
// last character plus the full domain ("somchai@mail.com" -> "s*****i@mail.com").
// Raw destinations are never returned to callers.
func Email(address string) string {
	at := strings.LastIndex(address, "@")
	if at <= 0 {
		return strings.Repeat("*", len(address))
	}

	local, domain := address[:at], address[at:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + domain
}
