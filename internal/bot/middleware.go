package bot

import (
	"sync"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"arcade-bot/internal/config"
)

// PrivateAllowlist remembers users seen in whitelisted groups so they can
// also talk to the bot in private.
type PrivateAllowlist struct {
	mu    sync.RWMutex
	users map[int64]struct{}
}

// NewPrivateAllowlist creates an empty allowlist.
func NewPrivateAllowlist() *PrivateAllowlist {
	return &PrivateAllowlist{users: make(map[int64]struct{})}
}

// Allow marks a user as allowed in private chat.
func (a *PrivateAllowlist) Allow(userID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.users[userID] = struct{}{}
}

// Allowed reports whether the user may use private chat.
func (a *PrivateAllowlist) Allowed(userID int64) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.users[userID]
	return ok
}

// WhitelistMiddleware drops updates from chats outside the whitelist.
// Private chats pass when the whitelist is empty or the sender was seen in
// an allowed group.
func WhitelistMiddleware(cfg *config.Config, allow *PrivateAllowlist) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			sender := c.Sender()
			if chat == nil || sender == nil {
				return nil
			}

			if chat.Type == tele.ChatPrivate {
				if len(cfg.Whitelist.Chats) == 0 || allow.Allowed(sender.ID) {
					return next(c)
				}
				log.Debug().
					Int64("user_id", sender.ID).
					Msg("Ignoring private chat from user not seen in a whitelisted group")
				return nil
			}

			if !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}

			allow.Allow(sender.ID)
			return next(c)
		}
	}
}

// LoggingMiddleware logs all incoming updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			if cb := c.Callback(); cb != nil {
				logEvent = logEvent.Str("callback", cb.Data)
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware recovers from panics in handlers.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("text", c.Text()).
						Msg("Recovered from panic in handler")
					if c.Callback() != nil {
						_ = c.Respond()
						return
					}
					_ = c.Reply("❌ Internal error, please try again later.")
				}
			}()
			return next(c)
		}
	}
}
