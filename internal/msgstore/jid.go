package msgstore

import (
	"strings"

	"go.mau.fi/whatsmeow/types"
)

// LocalPart returns the user part of a JID with any agent or device suffix
// removed. Strings without a domain are returned unchanged.
func LocalPart(jid string) string {
	if !strings.Contains(jid, "@") {
		return jid
	}
	parsed, err := types.ParseJID(jid)
	if err != nil || parsed.User == "" {
		user, _, _ := strings.Cut(jid, "@")
		return user
	}
	return parsed.User
}

// IsGroupJID reports whether jid addresses a group chat.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, "@"+types.GroupServer)
}
