package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"fresherwatch/internal/domain"
	"fresherwatch/internal/events"
	"fresherwatch/internal/pipeline"
	"fresherwatch/internal/sched"
)

func commands() []*discordgo.ApplicationCommand {
	minLimit := float64(1)
	sourceChoices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Both", Value: string(domain.SelectBoth)},
		{Name: "FreshersNow", Value: string(domain.SelectFreshersNow)},
		{Name: "TNP Officer", Value: string(domain.SelectTNPOfficer)},
	}
	limitOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "limit",
		Description: "Jobs per source (1-50)",
		MinValue:    &minLimit,
		MaxValue:    50,
	}
	onlyNewOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "only_new",
		Description: "Show only jobs not posted to this channel before",
	}
	sourceOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "source",
		Description: "Which job board to pull from",
		Choices:     sourceChoices,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "jobs",
			Description: "Fetch latest fresher jobs and apply links",
			Options:     []*discordgo.ApplicationCommandOption{limitOpt, onlyNewOpt, sourceOpt},
		},
		{
			Name:        "refresh_now",
			Description: "Refresh and post the latest jobs to this channel",
			Options:     []*discordgo.ApplicationCommandOption{limitOpt, onlyNewOpt, sourceOpt},
		},
		{
			Name:        "schedule_refresh",
			Description: "Schedule a daily refresh in this channel",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "time",
					Description: "Time in 24h format, e.g. 09:00",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "tz",
					Description: "Timezone, e.g. Asia/Kolkata",
				},
				sourceOpt,
			},
		},
		{
			Name:        "unschedule",
			Description: "Remove this channel's daily refresh",
		},
		{
			Name:        "reset_seen",
			Description: "Forget which jobs were already posted to this channel",
		},
		{
			Name:        "tips",
			Description: "Job-search operator tips",
		},
	}
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "jobs":
		b.handleRefreshCmd(i, false, "Latest Fresher Jobs")
	case "refresh_now":
		b.handleRefreshCmd(i, true, "Manual Refresh - Latest Fresher Jobs")
	case "schedule_refresh":
		b.handleSchedule(i)
	case "unschedule":
		b.handleUnschedule(i)
	case "reset_seen":
		b.handleResetSeen(i)
	case "tips":
		b.handleTips(i)
	}
}

func optionMap(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}

func (b *Bot) deferReply(i *discordgo.InteractionCreate, ephemeral bool) bool {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := b.session.InteractionRespond(i.Interaction, resp); err != nil {
		log.Printf("[bot] defer failed: %v", err)
		return false
	}
	return true
}

func (b *Bot) followup(i *discordgo.InteractionCreate, content string) {
	if _, err := b.session.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
	}); err != nil {
		log.Printf("[bot] followup failed: %v", err)
	}
}

func (b *Bot) handleRefreshCmd(i *discordgo.InteractionCreate, onlyNewDefault bool, header string) {
	opts := optionMap(i)

	limit := b.defaultLimit
	if o, ok := opts["limit"]; ok {
		limit = int(o.IntValue())
	}
	onlyNew := onlyNewDefault
	if o, ok := opts["only_new"]; ok {
		onlyNew = o.BoolValue()
	}
	sel := domain.SelectBoth
	if o, ok := opts["source"]; ok {
		sel, _ = domain.ParseSelector(o.StringValue()) // choices are pre-validated
	}

	if !b.deferReply(i, false) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	out, err := b.pipe.Refresh(ctx, pipeline.Request{
		ChannelID: i.ChannelID,
		Selector:  sel,
		Limit:     limit,
		OnlyNew:   onlyNew,
	})
	if err != nil {
		b.followup(i, "Refresh failed: "+err.Error())
		return
	}

	b.hub.Publish(events.Make("refresh", i.ChannelID, map[string]any{
		"posted":   len(out.Postings),
		"warnings": len(out.Warnings),
	}))

	if len(out.Postings) == 0 {
		if onlyNew {
			b.followup(i, "No new jobs since last post.")
		} else {
			b.followup(i, "No jobs found right now. Please try again later.")
		}
		return
	}

	b.deliver(i.ChannelID, header, out)
	b.followup(i, fmt.Sprintf("Posted %d job(s).", len(out.Postings)))
}

func (b *Bot) handleSchedule(i *discordgo.InteractionCreate) {
	opts := optionMap(i)

	hhmm := opts["time"].StringValue()
	tz := b.defaultTZ
	if o, ok := opts["tz"]; ok && o.StringValue() != "" {
		tz = o.StringValue()
	}
	sel := domain.SelectBoth
	if o, ok := opts["source"]; ok {
		sel, _ = domain.ParseSelector(o.StringValue())
	}

	if !b.deferReply(i, true) {
		return
	}

	if _, err := b.sched.ScheduleDaily(i.ChannelID, hhmm, tz, sel); err != nil {
		switch {
		case errors.Is(err, sched.ErrInvalidTime):
			b.followup(i, fmt.Sprintf("Invalid time %q; use 24h HH:MM, e.g. 09:00.", hhmm))
		case errors.Is(err, sched.ErrInvalidTimezone):
			b.followup(i, fmt.Sprintf("Unknown timezone %q; use an IANA name like Asia/Kolkata.", tz))
		default:
			b.followup(i, "Failed to schedule refresh: "+err.Error())
		}
		return
	}

	msg := fmt.Sprintf("Scheduled daily refresh at %s (%s) for <#%s>.", hhmm, tz, i.ChannelID)
	if next, ok := b.sched.NextFire(i.ChannelID); ok {
		msg += " Next run: " + next.Format(time.RFC1123)
	}
	b.followup(i, msg)
}

func (b *Bot) handleUnschedule(i *discordgo.InteractionCreate) {
	if !b.deferReply(i, true) {
		return
	}
	if err := b.sched.Unschedule(i.ChannelID); err != nil {
		if errors.Is(err, sched.ErrNotScheduled) {
			b.followup(i, "This channel has no scheduled refresh.")
			return
		}
		b.followup(i, "Failed to unschedule: "+err.Error())
		return
	}
	b.followup(i, fmt.Sprintf("Removed the daily refresh for <#%s>.", i.ChannelID))
}

func (b *Bot) handleResetSeen(i *discordgo.InteractionCreate) {
	if !b.deferReply(i, true) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := b.seen.SeenCount(ctx, i.ChannelID)
	if err != nil {
		n = 0
	}
	if err := b.seen.Reset(ctx, i.ChannelID); err != nil {
		b.followup(i, "Failed to reset: "+err.Error())
		return
	}
	b.followup(i, fmt.Sprintf("Cleared %d remembered link(s); the next refresh starts fresh.", n))
}

func (b *Bot) handleTips(i *discordgo.InteractionCreate) {
	if !b.deferReply(i, true) {
		return
	}
	b.followup(i, searchTips)
}
