// Package bot connects the command router to Telegram.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"idiom-quiz-bot/internal/config"
	"idiom-quiz-bot/internal/handler"
	"idiom-quiz-bot/internal/model"
)

// Bot wraps the telebot instance with the quiz router.
type Bot struct {
	bot     *tele.Bot
	cfg     *config.Config
	router  *handler.Router
	private *privateUsers
}

// New creates a Bot and registers middleware and handlers.
func New(cfg *config.Config, router *handler.Router) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	timeout := cfg.Bot.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
		OnError: func(err error, c tele.Context) {
			log.Error().Err(err).Msg("Telegram handler error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:     teleBot,
		cfg:     cfg,
		router:  router,
		private: newPrivateUsers(),
	}
	b.registerMiddleware()
	b.registerHandlers()
	return b, nil
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg, b.private))
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/help", b.handleHelp)
	b.bot.Handle("/start", b.handleHelp)
	b.bot.Handle(tele.OnText, b.handleText)
}

func (b *Bot) handleHelp(c tele.Context) error {
	return c.Reply(b.router.HelpText())
}

// handleText feeds every text message to the router; anything that is not a
// quiz command is ignored.
func (b *Bot) handleText(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	msgs, handled := b.router.Handle(context.Background(), handler.Request{
		UserID:      strconv.FormatInt(sender.ID, 10),
		DisplayName: displayName(sender),
		Text:        c.Text(),
	})
	if !handled {
		return nil
	}
	return deliver(c, msgs)
}

// deliver sends replies in order and stops at the first failure.
func deliver(c tele.Context, msgs []model.Message) error {
	for _, m := range msgs {
		if err := c.Send(sendable(m)); err != nil {
			return fmt.Errorf("failed to send reply: %w", err)
		}
	}
	return nil
}

func sendable(m model.Message) any {
	if m.Kind == model.KindImage {
		return &tele.Photo{File: tele.FromDisk(m.ImagePath)}
	}
	return m.Text
}

// displayName prefers the full name over the @username.
func displayName(u *tele.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

// Run polls until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	log.Info().Msg("Starting bot...")
	go b.bot.Start()

	<-ctx.Done()
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
	return nil
}
