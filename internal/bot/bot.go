package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"fresherwatch/internal/config"
	"fresherwatch/internal/domain"
	"fresherwatch/internal/events"
	"fresherwatch/internal/pipeline"
	"fresherwatch/internal/sched"
	"fresherwatch/internal/store"
)

const fireTimeout = 2 * time.Minute

// Bot is the Discord presentation layer: slash commands in, embeds out. All
// pipeline and schedule state lives behind the injected collaborators.
type Bot struct {
	session *discordgo.Session
	pipe    *pipeline.Pipeline
	sched   *sched.Scheduler
	seen    *store.Store
	hub     *events.Hub

	appID        string
	guildID      string
	defaultTZ    string
	defaultLimit int
}

func New(cfg config.Config, pipe *pipeline.Pipeline, schd *sched.Scheduler, seen *store.Store, hub *events.Hub) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	b := &Bot{
		session:      session,
		pipe:         pipe,
		sched:        schd,
		seen:         seen,
		hub:          hub,
		appID:        cfg.Discord.AppID,
		guildID:      cfg.Discord.GuildID,
		defaultTZ:    cfg.Refresh.Timezone,
		defaultLimit: cfg.Refresh.DefaultLimit,
	}
	session.AddHandler(b.handleInteraction)
	return b, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open: %w", err)
	}
	if err := b.registerCommands(); err != nil {
		_ = b.session.Close()
		return err
	}
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) registerCommands() error {
	appID := b.appID
	if appID == "" {
		appID = b.session.State.User.ID
	}

	// guild-scoped when configured (instant), global otherwise (slow sync)
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.guildID, commands()); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	if b.guildID != "" {
		log.Printf("[bot] commands synced to guild %s", b.guildID)
	} else {
		log.Printf("[bot] commands synced globally (may take up to an hour)")
	}
	return nil
}

// Fire is the scheduler callback: run an only-new refresh for the channel
// and deliver whatever came back. Errors are logged, never propagated; the
// next scheduled fire is the retry.
func (b *Bot) Fire(ctx context.Context, channelID string, sel domain.Selector) {
	fctx, cancel := context.WithTimeout(ctx, fireTimeout)
	defer cancel()

	out, err := b.pipe.Refresh(fctx, pipeline.Request{
		ChannelID: channelID,
		Selector:  sel,
		Limit:     b.defaultLimit,
		OnlyNew:   true,
	})
	if err != nil {
		log.Printf("[bot] scheduled refresh failed channel=%s err=%v", channelID, err)
		return
	}

	b.hub.Publish(events.Make("refresh", channelID, map[string]any{
		"posted":   len(out.Postings),
		"warnings": len(out.Warnings),
	}))

	if len(out.Postings) == 0 {
		b.send(channelID, "No new jobs since last post.")
		return
	}
	b.deliver(channelID, "Scheduled Refresh - Latest Fresher Jobs", out)
}

// deliver posts the header, one embed per posting, and a note when a source
// was down so a partial result is visibly partial.
func (b *Bot) deliver(channelID, header string, out pipeline.Outcome) {
	if header != "" {
		b.send(channelID, header)
	}
	for _, p := range out.Postings {
		if _, err := b.session.ChannelMessageSendEmbed(channelID, postingEmbed(p)); err != nil {
			log.Printf("[bot] send embed failed channel=%s err=%v", channelID, err)
		}
	}
	if note := warningNote(out.Warnings); note != "" {
		b.send(channelID, note)
	}
}

func (b *Bot) send(channelID, content string) {
	if _, err := b.session.ChannelMessageSend(channelID, content); err != nil {
		log.Printf("[bot] send failed channel=%s err=%v", channelID, err)
	}
}
