package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// KeyKind distinguishes server-issued answer identifiers from the locally
// synthesized sentinels that must never be used as feedback keys.
type KeyKind int

const (
	// KeyNone is the zero kind: the message carries no identifier at all
	// (freshly sent user messages).
	KeyNone KeyKind = iota
	// KeyReal is a server-issued identifier, eligible for feedback.
	KeyReal
	// KeyWelcome tags the fixed greeting message.
	KeyWelcome
	// KeyError tags a locally synthesized error placeholder.
	KeyError
	// KeyTemp tags a transient local identifier assigned before the server
	// one arrived. Parsed for compatibility with previously stored data.
	KeyTemp
)

const (
	welcomeKeyString = "welcome_message"
	errorKeyPrefix   = "error_"
	tempKeyPrefix    = "temp_msg_"
)

// AnswerKey is a typed answer identifier. On the wire it is the plain
// string the original system used (a raw id, "welcome_message", or an
// "error_<ms>" placeholder), so data stored by older clients round-trips.
type AnswerKey struct {
	kind KeyKind
	id   string
}

// RealKey wraps a server-issued identifier. An empty id yields the zero key.
func RealKey(id string) AnswerKey {
	if id == "" {
		return AnswerKey{}
	}
	return AnswerKey{kind: KeyReal, id: id}
}

// WelcomeKey returns the fixed identifier of the greeting message.
func WelcomeKey() AnswerKey {
	return AnswerKey{kind: KeyWelcome, id: welcomeKeyString}
}

// ErrorKey synthesizes a time-based placeholder identifier for an error
// message. It is unique enough for list keys but never feedback-eligible.
func ErrorKey(now time.Time) AnswerKey {
	return AnswerKey{kind: KeyError, id: fmt.Sprintf("%s%d", errorKeyPrefix, now.UnixMilli())}
}

// ParseAnswerKey classifies a stored identifier string by its sentinel
// prefix. Anything that is not a known sentinel is a real id.
func ParseAnswerKey(s string) AnswerKey {
	switch {
	case s == "":
		return AnswerKey{}
	case s == welcomeKeyString:
		return AnswerKey{kind: KeyWelcome, id: s}
	case strings.HasPrefix(s, errorKeyPrefix):
		return AnswerKey{kind: KeyError, id: s}
	case strings.HasPrefix(s, tempKeyPrefix):
		return AnswerKey{kind: KeyTemp, id: s}
	default:
		return AnswerKey{kind: KeyReal, id: s}
	}
}

// Kind reports what the key identifies.
func (k AnswerKey) Kind() KeyKind { return k.kind }

// String returns the wire form of the key; empty for the zero key.
func (k AnswerKey) String() string { return k.id }

// IsZero reports whether the message carries no identifier. Used by
// encoding/json for the omitzero tag option.
func (k AnswerKey) IsZero() bool { return k.kind == KeyNone }

// FeedbackEligible reports whether feedback may be correlated to this key.
// Welcome, error and temporary sentinels can never be resolved server-side,
// so feedback controls are suppressed for them.
func (k AnswerKey) FeedbackEligible() bool { return k.kind == KeyReal }

func (k AnswerKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.id)
}

func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*k = ParseAnswerKey(s)
	return nil
}
