package easteregg

import (
	"context"
	"errors"
	"strings"

	"quest-entry-service/config"
	"quest-entry-service/models"
	"quest-entry-service/store"

	"github.com/go-playground/validator/v10"
)

// State is the quest status of the linked identity.
type State int

const (
	// StateNoIdentity: no wallet connected. Blocks every submission.
	StateNoIdentity State = iota
	// StateNoEntry: wallet connected, never submitted.
	StateNoEntry
	// StateLocked: an entry exists but was created with the quest locked.
	StateLocked
	StateUnlocked
	StateSolved
)

func (s State) String() string {
	switch s {
	case StateNoIdentity:
		return "no_identity"
	case StateNoEntry:
		return "no_entry"
	case StateLocked:
		return "locked"
	case StateUnlocked:
		return "unlocked"
	case StateSolved:
		return "solved"
	default:
		return "unknown"
	}
}

// StateOf maps a persisted entry (nil when absent) to a State.
func StateOf(e *models.Entry) State {
	switch {
	case e == nil:
		return StateNoEntry
	case e.EasterEggSolved:
		return StateSolved
	case e.EasterEggUnlocked:
		return StateUnlocked
	default:
		return StateLocked
	}
}

// Gateway is the slice of the entry repository a session needs. Both
// store.Store and the HTTP client satisfy it.
type Gateway interface {
	GetEntryByWallet(ctx context.Context, walletAddress string) (*models.Entry, error)
	CreateEntry(ctx context.Context, in store.NewEntry) (*models.Entry, error)
}

// Session is the per-visitor quest state machine. It is driven from a
// single event loop and is not safe for concurrent use.
type Session struct {
	cfg      config.SessionConfig
	matcher  *Matcher
	gateway  Gateway
	validate *validator.Validate

	state       State
	wallet      string
	email       string
	emailLocked bool
	dialogOpen  bool
	route       string
}

func NewSession(codes config.Codes, cfg config.SessionConfig, gw Gateway) *Session {
	return &Session{
		cfg:      cfg,
		matcher:  NewMatcher(codes),
		gateway:  gw,
		validate: validator.New(),
		state:    StateNoIdentity,
	}
}

func (s *Session) State() State { return s.state }
func (s *Session) Wallet() string { return s.wallet }
func (s *Session) Email() string { return s.email }
func (s *Session) EmailLocked() bool { return s.emailLocked }
func (s *Session) DialogOpen() bool { return s.dialogOpen }
func (s *Session) Route() string { return s.route }
func (s *Session) Matcher() *Matcher { return s.matcher }
func (s *Session) OnQuestRoute() bool { return s.route == s.cfg.QuestPath }
func (s *Session) suspended() bool { return s.dialogOpen || s.OnQuestRoute() }

// SetWallet switches the linked identity and loads its entry. On a gateway
// fault the previous state is kept and the error returned.
func (s *Session) SetWallet(ctx context.Context, wallet string) error {
	s.matcher.Reset()
	wallet = strings.TrimSpace(wallet)

	if wallet == "" {
		s.wallet, s.email, s.emailLocked = "", "", false
		s.state = StateNoIdentity
		return nil
	}

	entry, err := s.gateway.GetEntryByWallet(ctx, wallet)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	s.wallet = wallet
	s.state = StateOf(entry)
	if entry != nil {
		s.email, s.emailLocked = entry.Email, true
	} else {
		s.email, s.emailLocked = "", false
	}
	return nil
}

// SetRoute records navigation. The buffer starts over on every route.
func (s *Session) SetRoute(path string) {
	s.route = path
	s.matcher.Reset()
}

// Key handles one key event.
func (s *Session) Key(key string) []Effect {
	if s.suspended() {
		s.matcher.Push(key)
		return nil
	}

	switch s.matcher.Feed(key) {
	case SignalFake:
		return []Effect{
			notice(NoticeSuccess, MsgCheatActivated),
			{Kind: EffectRedirect, Path: s.cfg.DecoyPath, Delay: s.cfg.ActivationDelay},
		}
	case SignalReal:
		if s.state == StateSolved {
			return []Effect{notice(NoticeInfo, MsgAlreadySolved)}
		}
		s.dialogOpen = true
		return []Effect{
			notice(NoticeSuccess, MsgCheatActivated),
			{Kind: EffectOpenDialog, Delay: s.cfg.ActivationDelay},
		}
	default:
		return nil
	}
}

// CloseDialog dismisses the quest dialog without submitting.
func (s *Session) CloseDialog() []Effect {
	if !s.dialogOpen {
		return nil
	}
	s.dialogOpen = false
	return []Effect{{Kind: EffectCloseDialog}}
}

// Submit handles the quest dialog form. An email locked by an existing
// entry overrides the submitted value. Without an open dialog there is no
// form, so nothing happens.
func (s *Session) Submit(ctx context.Context, email string) []Effect {
	if !s.dialogOpen {
		return nil
	}
	if s.state == StateNoIdentity {
		return []Effect{notice(NoticeError, MsgWalletRequired)}
	}
	if s.emailLocked {
		email = s.email
	}
	email = strings.TrimSpace(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return []Effect{notice(NoticeError, MsgInvalidEmail)}
	}

	switch s.state {
	case StateUnlocked:
		return s.enterQuest()
	case StateSolved:
		s.dialogOpen = false
		return []Effect{{Kind: EffectCloseDialog}, notice(NoticeInfo, MsgAlreadySolved)}
	case StateLocked:
		return []Effect{notice(NoticeError, MsgWalletExists)}
	}

	_, err := s.gateway.CreateEntry(ctx, store.NewEntry{
		Email:             email,
		WalletAddress:     s.wallet,
		EasterEggUnlocked: true,
	})
	if err != nil {
		if field, ok := store.IsConflict(err); ok {
			if field == store.FieldEmail {
				return []Effect{notice(NoticeError, MsgEmailExists)}
			}
			return []Effect{notice(NoticeError, MsgWalletExists)}
		}
		return []Effect{notice(NoticeError, MsgGenericFailure)}
	}

	s.state = StateUnlocked
	s.email, s.emailLocked = email, true
	return s.enterQuest()
}

// MarkSolved records a solve the service confirmed (updated or already
// solved) for the linked wallet. It reports whether the state changed.
func (s *Session) MarkSolved() bool {
	if s.state == StateNoIdentity || s.state == StateSolved {
		return false
	}
	s.state = StateSolved
	return true
}

func (s *Session) enterQuest() []Effect {
	s.dialogOpen = false
	s.route = s.cfg.QuestPath
	s.matcher.Reset()
	return []Effect{
		{Kind: EffectGrantAccess},
		{Kind: EffectRedirect, Path: s.cfg.QuestPath},
		{Kind: EffectCloseDialog},
	}
}
