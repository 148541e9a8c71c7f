package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/susu3304/lootsplit/internal/hunt"
	"github.com/susu3304/lootsplit/internal/lootsplit"
	"go.uber.org/zap"
)

// defaultReminderMinutes is used when a group is bound to a channel without
// an interval configured.
const defaultReminderMinutes = 24 * 60

func (h *Handler) runHunt(ctx context.Context, channelID, userID string, sub *discordgo.ApplicationCommandInteractionDataOption) reply {
	switch sub.Name {
	case "import":
		return reply{modal: importModal()}
	case "waste":
		player := getStringOption(sub.Options, "player")
		amount := getIntOption(sub.Options, "amount")
		if player == nil || amount == nil {
			return textReply("player and amount are required.")
		}
		sess, err := h.svc.SetExtraWaste(channelID, *player, *amount)
		if err != nil {
			return textReply(h.errorText(err))
		}
		return textReply(fmt.Sprintf("Extra waste for %s set to %s gp.\n\n%s",
			*player, humanize.Comma(*amount), h.summary(channelID, sess)))
	case "bless":
		player := getStringOption(sub.Options, "player")
		level := getIntOption(sub.Options, "level")
		if player == nil || level == nil {
			return textReply("player and level are required.")
		}
		added, sess, err := h.svc.AddBlessing(channelID, *player, int(*level))
		if err != nil {
			return textReply(h.errorText(err))
		}
		return textReply(fmt.Sprintf("Added %s gp of blessings (level %d) to %s.\n\n%s",
			humanize.Comma(added), *level, *player, h.summary(channelID, sess)))
	case "show":
		sess, err := h.svc.Current(channelID)
		if err != nil {
			return textReply(h.errorText(err))
		}
		return textReply(h.summary(channelID, sess))
	case "clear":
		if err := h.svc.Clear(channelID); err != nil {
			return textReply(h.errorText(err))
		}
		return textReply("Hunt cleared.")
	case "save":
		groupID := getIntOption(sub.Options, "group_id")
		if groupID == nil {
			return textReply("group_id is required.")
		}
		return h.save(ctx, channelID, userID, *groupID)
	default:
		return textReply("Unknown subcommand.")
	}
}

func (h *Handler) runImport(channelID, text string) reply {
	sess, err := h.svc.Import(channelID, text)
	if err != nil {
		return textReply(h.errorText(err))
	}
	return textReply(h.summary(channelID, sess))
}

func (h *Handler) save(ctx context.Context, channelID, userID string, groupID int64) reply {
	member, err := h.groups.IsGroupMember(ctx, groupID, userID)
	if err != nil {
		return textReply(h.errorText(err))
	}
	if !member {
		return textReply("You are not a member of that group.")
	}
	group, err := h.groups.Group(ctx, groupID)
	if err != nil {
		return textReply(h.errorText(err))
	}
	sess, err := h.svc.Current(channelID)
	if err != nil {
		return textReply(h.errorText(err))
	}
	if len(sess.Transfers) == 0 {
		return textReply("Nothing to save: no transfers needed.")
	}

	created, saveErr := h.svc.SaveTransfers(ctx, groupID, userID, sess.Transfers)
	msg := fmt.Sprintf("Saved %d of %d transfer(s) to %s.", created, len(sess.Transfers), group.Name)
	if saveErr != nil {
		msg += " Some transfers could not be saved; check the group page and add them again."
	}
	if created == 0 {
		return textReply(msg)
	}

	interval := group.ReminderIntervalMinutes
	if interval <= 0 {
		interval = defaultReminderMinutes
	}
	if err := h.groups.ConfigureReminders(ctx, groupID, channelID, interval); err != nil {
		h.logger.Warn("failed to bind reminder channel",
			zap.Int64("group_id", groupID),
			zap.String("channel_id", channelID),
			zap.Error(err))
		return textReply(msg)
	}
	return textReply(msg + fmt.Sprintf(" This channel will be reminded of pending transfers every %s.", minutesText(interval)))
}

func (h *Handler) summary(channelID string, sess *hunt.Session) string {
	waste, err := h.svc.ExtraWaste(channelID)
	if err != nil {
		waste = nil
	}
	return lootsplit.Summary(sess, waste)
}

func importModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: importModalID,
		Title:    "Import party hunt",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    importInputID,
						Label:       "Session data",
						Style:       discordgo.TextInputParagraph,
						Placeholder: "Paste the Party Hunt analyser output here",
						Required:    true,
						MaxLength:   4000,
					},
				},
			},
		},
	}
}

func minutesText(m int) string {
	switch {
	case m%(24*60) == 0:
		return pluralize(m/(24*60), "day")
	case m%60 == 0:
		return pluralize(m/60, "hour")
	default:
		return pluralize(m, "minute")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
