package commands

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/lootsplit/internal/bless"
	"github.com/susu3304/lootsplit/internal/db"
	"github.com/susu3304/lootsplit/internal/hunt"
	"github.com/susu3304/lootsplit/internal/lootsplit"
	"go.uber.org/zap"
)

const (
	importModalID = "hunt_import"
	importInputID = "session_data"
)

// Responder is the part of *discordgo.Session the handlers talk to.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// GroupStore is the group persistence used by /hunt save. *db.DB satisfies it.
type GroupStore interface {
	Group(ctx context.Context, groupID int64) (*db.Group, error)
	IsGroupMember(ctx context.Context, groupID int64, userID string) (bool, error)
	ConfigureReminders(ctx context.Context, groupID int64, channelID string, intervalMinutes int) error
}

type Handler struct {
	svc    *lootsplit.Service
	groups GroupStore
	logger *zap.Logger
}

func NewHandler(svc *lootsplit.Service, groups GroupStore, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, groups: groups, logger: logger}
}

// reply is what a command wants sent back. modal takes precedence over content.
type reply struct {
	content string
	modal   *discordgo.InteractionResponseData
}

func textReply(content string) reply {
	return reply{content: content}
}

// HandleCommand dispatches an application command interaction.
func (h *Handler) HandleCommand(s Responder, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	switch data.Name {
	case "hunt":
		if len(data.Options) == 0 {
			h.respond(s, i, textReply("No subcommand given."))
			return
		}
		sub := data.Options[0]
		if sub.Name == "save" {
			h.respondDeferred(s, i, func(ctx context.Context) reply {
				return h.runHunt(ctx, i.ChannelID, interactionUserID(i), sub)
			})
			return
		}
		h.respond(s, i, h.runHunt(context.Background(), i.ChannelID, interactionUserID(i), sub))
	case "bless":
		h.respond(s, i, runBless(data.Options))
	}
}

// HandleModalSubmit handles the session log pasted into the import modal.
func (h *Handler) HandleModalSubmit(s Responder, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	if data.CustomID != importModalID {
		return
	}
	h.respond(s, i, h.runImport(i.ChannelID, modalValue(data, importInputID)))
}

func (h *Handler) respond(s Responder, i *discordgo.InteractionCreate, r reply) {
	if r.modal != nil {
		if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseModal,
			Data: r.modal,
		}); err != nil {
			h.logger.Warn("failed to open modal", zap.Error(err))
		}
		return
	}

	parts := chunk(r.content, messageLimit)
	if len(parts) == 0 {
		return
	}
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: parts[0]},
	}); err != nil {
		h.logger.Warn("failed to respond to interaction", zap.Error(err))
		return
	}
	h.followup(s, i, parts[1:])
}

// respondDeferred acknowledges the interaction first, for commands that may
// outlast Discord's response deadline.
func (h *Handler) respondDeferred(s Responder, i *discordgo.InteractionCreate, run func(ctx context.Context) reply) {
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		h.logger.Warn("failed to defer interaction", zap.Error(err))
		return
	}
	r := run(context.Background())
	h.followup(s, i, chunk(r.content, messageLimit))
}

func (h *Handler) followup(s Responder, i *discordgo.InteractionCreate, parts []string) {
	for _, p := range parts {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: p}); err != nil {
			h.logger.Warn("failed to send followup", zap.Error(err))
			return
		}
	}
}

// errorText turns an error into a message for the user.
func (h *Handler) errorText(err error) string {
	switch {
	case errors.Is(err, lootsplit.ErrNoSession):
		return "No hunt has been imported in this channel. Use /hunt import first."
	case errors.Is(err, lootsplit.ErrUnknownPlayer):
		return "That player is not part of the imported hunt."
	case errors.Is(err, lootsplit.ErrNegativeAmount):
		return "Extra waste must not be negative."
	case errors.Is(err, lootsplit.ErrEmptyInput):
		return "Please paste the session data."
	case errors.Is(err, hunt.ErrNoPlayers):
		return "No players found in the session data. Paste the whole Party Hunt analyser output."
	case errors.Is(err, bless.ErrInvalidLevel):
		return "Level must be at least 1."
	case errors.Is(err, db.ErrNotFound):
		return "Group not found."
	default:
		h.logger.Error("command failed", zap.Error(err))
		return "Something went wrong. Please try again."
	}
}
