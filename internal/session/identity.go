package session

import (
	"strings"

	"github.com/google/uuid"
)

const (
	conversationIDPrefix = "conv_"
	guestIDPrefix        = "guest_"
	// Older clients minted anonymous ids with a plain "user_" prefix;
	// they are treated as guests too.
	legacyGuestIDPrefix = "user_"
)

// NewConversationID allocates a locally unique conversation identifier.
func NewConversationID() string {
	return conversationIDPrefix + uuid.NewString()
}

// NewGuestID mints an identity for a user who has not logged in.
func NewGuestID() string {
	return guestIDPrefix + uuid.NewString()
}

// IsGuestID reports whether the identifier was minted locally rather than
// issued by an identity provider. Only guest ids are registered with the
// guest registrar collaborator.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, guestIDPrefix) || strings.HasPrefix(id, legacyGuestIDPrefix)
}
