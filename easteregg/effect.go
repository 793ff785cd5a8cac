package easteregg

import "time"

// EffectKind enumerates the UI side effects a Session asks its host to perform.
type EffectKind int

const (
	EffectNotice EffectKind = iota + 1
	EffectRedirect
	EffectOpenDialog
	EffectCloseDialog
	// EffectGrantAccess sets the client-visible flag that lets the quest
	// page render (a cookie in the browser).
	EffectGrantAccess
)

func (k EffectKind) String() string {
	switch k {
	case EffectNotice:
		return "notice"
	case EffectRedirect:
		return "redirect"
	case EffectOpenDialog:
		return "open_dialog"
	case EffectCloseDialog:
		return "close_dialog"
	case EffectGrantAccess:
		return "grant_access"
	default:
		return "unknown"
	}
}

// NoticeLevel mirrors toast flavours.
type NoticeLevel int

const (
	NoticeInfo NoticeLevel = iota
	NoticeSuccess
	NoticeError
)

// Effect is one side effect. Delay, when set, is how long the host should
// wait before applying it.
type Effect struct {
	Kind    EffectKind
	Level   NoticeLevel
	Message string
	Path    string
	Delay   time.Duration
}

const (
	MsgCheatActivated = "Cheat Activated!"
	MsgAlreadySolved  = "You have already solved the quest.\nStay tuned for more quests!"
	MsgInvalidEmail   = "Please enter a valid email address."
	MsgWalletRequired = "Wallet address is required."
	MsgWalletExists   = "Wallet already exists."
	MsgEmailExists    = "Email already exists."
	MsgGenericFailure = "Something went wrong. Please try again later."
)

func notice(level NoticeLevel, msg string) Effect {
	return Effect{Kind: EffectNotice, Level: level, Message: msg}
}
