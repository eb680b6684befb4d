package subscription

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"kinobot/internal/logger"
)

// MemberChecker looks up a user's status in a channel ("member", "left", "kicked", ...).
type MemberChecker interface {
	MemberStatus(ctx context.Context, channel string, userID int64) (string, error)
}

// Gate answers whether a user is subscribed to the required channel. Any lookup failure
// counts as not subscribed.
type Gate struct {
	checker MemberChecker
	channel string
	log     *zap.SugaredLogger
}

func NewGate(checker MemberChecker, channel string, log *zap.SugaredLogger) *Gate {
	return &Gate{checker: checker, channel: strings.TrimPrefix(channel, "@"), log: logger.OrNop(log)}
}

func (g *Gate) Channel() string { return g.channel }

// ChannelURL is the public link shown on the "subscribe" button.
func (g *Gate) ChannelURL() string { return "https://t.me/" + g.channel }

func (g *Gate) IsSubscribed(ctx context.Context, userID int64) bool {
	status, err := g.checker.MemberStatus(ctx, "@"+g.channel, userID)
	if err != nil {
		g.log.Warnw("membership check failed", "channel", g.channel, "user_id", userID, "err", err)
		return false
	}
	switch status {
	case "member", "administrator", "creator":
		return true
	default:
		return false
	}
}
