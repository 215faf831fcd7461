package domain

import "strings"

// ChatType represents the chat type
type ChatType string

const (
	ChatTypeGroup ChatType = "group"
	ChatTypeP2P   ChatType = "p2p"
)

// Incoming is the per-message bundle the trigger policy works on.
// It is built for one message and never stored.
type Incoming struct {
	MsgID          string
	Text           string
	SenderID       string
	SenderName     string
	ConversationID string
	ThreadID       string
	ChatType       ChatType
	IsReplyToBot   bool
	MentionsBot    bool // set by transports that resolve mentions themselves
}

// IsGroup checks if the message came from a group chat
func (in *Incoming) IsGroup() bool {
	return in.ChatType == ChatTypeGroup
}

// IsSender reports whether name matches the sender's id or display name.
// A leading "@" on either side is ignored.
func (in *Incoming) IsSender(name string) bool {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if name == "" {
		return false
	}
	if strings.EqualFold(name, in.SenderID) {
		return true
	}
	return strings.EqualFold(name, strings.TrimPrefix(in.SenderName, "@"))
}

// DecisionKind is what the router does with a message
type DecisionKind int

const (
	DecisionIgnore DecisionKind = iota
	DecisionRespond
	DecisionBanter
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionRespond:
		return "respond"
	case DecisionBanter:
		return "banter"
	default:
		return "ignore"
	}
}

// Decision reasons, used for logging
const (
	ReasonPrivate    = "private"
	ReasonReplyToBot = "reply_to_bot"
	ReasonMention    = "mention"
	ReasonAskPrefix  = "ask_prefix"
	ReasonAuthority  = "authority"
	ReasonEscalation = "escalation"
	ReasonKeyword    = "keyword"
	ReasonBanter     = "banter"
	ReasonCooldown   = "cooldown"
	ReasonOffTopic   = "off_topic"
	ReasonNoTrigger  = "no_trigger"
	ReasonEmpty      = "empty"
)

// Decision is the outcome of the trigger policy
type Decision struct {
	Kind   DecisionKind
	Reason string
}

// Respond reports whether the model should be called
func (d Decision) Respond() bool {
	return d.Kind == DecisionRespond
}
