package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"socialsim/pkg/jobs"
	"socialsim/pkg/media"
	"socialsim/pkg/persona"
	"socialsim/pkg/relationship"
	"socialsim/pkg/sim"
	"socialsim/pkg/world"
)

// Discord allows at most 25 choices per option.
const maxChoices = 25

var minAge = float64(13)

// SlashCommands builds the command set. Persona choices come from catalog.
func SlashCommands(catalog *persona.Catalog) []*discordgo.ApplicationCommand {
	var choices []*discordgo.ApplicationCommandOptionChoice
	for _, p := range catalog.All() {
		if len(choices) == maxChoices {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: p.Name, Value: p.Key})
	}
	personaOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "persona",
		Description: "Who to text",
		Required:    true,
		Choices:     choices,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        "start",
			Description: "Create your profile",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "age",
				Description: "Your age; decides which crowd you belong to",
				Required:    true,
				MinValue:    &minAge,
			}},
		},
		{
			Name:        "talk",
			Description: "Start texting someone",
			Options:     []*discordgo.ApplicationCommandOption{personaOption},
		},
		{
			Name:        "status",
			Description: "See where you stand with everyone",
		},
		{
			Name:        "apologize",
			Description: "Apologize to the person you're texting after they blocked you",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "text",
				Description: "What you want to say",
				Required:    true,
			}},
		},
		{
			Name:        "reset",
			Description: "Start the social world over. Your message history is kept.",
		},
		{
			Name:        "image",
			Description: "Check on a photo someone promised you",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "id",
					Description: "The photo id",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "cancel",
					Description: "Stop waiting for it",
				},
			},
		},
	}
}

// SlashCommandHandlers maps command names to their handler functions
var SlashCommandHandlers = map[string]func(h *Handler, s Session, i *discordgo.InteractionCreate, userID string){
	"start":     handleStartCommand,
	"talk":      handleTalkCommand,
	"status":    handleStatusCommand,
	"apologize": handleApologizeCommand,
	"reset":     handleResetCommand,
	"image":     handleImageCommand,
}

func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, o := range i.ApplicationCommandData().Options {
		out[o.Name] = o
	}
	return out
}

func (h *Handler) respond(s Session, i *discordgo.InteractionCreate, content string, ephemeral bool, files ...*discordgo.File) {
	data := &discordgo.InteractionResponseData{Content: content, Files: files}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		h.log.Warn("Error responding to interaction", "error", err)
	}
}

func handleStartCommand(h *Handler, s Session, i *discordgo.InteractionCreate, userID string) {
	age := 0
	if o, ok := options(i)["age"]; ok {
		age = int(o.IntValue())
	}

	st, err := h.engine.CreateProfile(context.Background(), userID, age)
	switch {
	case errors.Is(err, sim.ErrProfileExists):
		h.respond(s, i, "You already have a profile. Use /reset to start the world over.", true)
	case errors.Is(err, sim.ErrInvalidAge):
		h.respond(s, i, "That doesn't look like an age.", true)
	case err != nil:
		h.log.Error("Error creating profile", "user", userID, "error", err)
		h.respond(s, i, "Couldn't create your profile. Try again later?", true)
	default:
		crowd := strings.ReplaceAll(st.UserRole, "_", " ")
		h.respond(s, i, fmt.Sprintf("Welcome! You're part of the %s crowd. Use /talk to text someone.", crowd), true)
	}
}

func handleTalkCommand(h *Handler, s Session, i *discordgo.InteractionCreate, userID string) {
	o, ok := options(i)["persona"]
	if !ok {
		h.respond(s, i, "Who do you want to text?", true)
		return
	}
	key := o.StringValue()

	res, err := h.engine.Open(context.Background(), userID, key, h.now())
	if err != nil {
		switch {
		case errors.Is(err, sim.ErrUnknownUser):
			h.respond(s, i, "You don't have a profile yet. Run /start with your age first.", true)
		case errors.Is(err, sim.ErrUnknownPersona):
			h.respond(s, i, "I don't know who that is.", true)
		default:
			h.log.Error("Error opening conversation", "user", userID, "persona", key, "error", err)
			h.respond(s, i, "Something went wrong. Try again later?", true)
		}
		return
	}

	h.selectPersona(userID, key)
	name := res.Persona.Name
	var b strings.Builder
	switch {
	case res.Blocked:
		fmt.Fprintf(&b, "%s has blocked you. Use /apologize to try to make it right.", name)
	case res.Reachable:
		fmt.Fprintf(&b, "You're texting %s. They're around right now (%s).", name, res.Reading)
	default:
		fmt.Fprintf(&b, "You're texting %s, but they're not around right now (%s). They'll see your messages later.", name, res.Reading)
	}
	if res.LastLine != nil && res.LastLine.Role != world.RoleSystem {
		speaker := "You"
		if res.LastLine.Role == world.RoleModel {
			speaker = name
		}
		fmt.Fprintf(&b, "\nLast message, %s: %s", speaker, res.LastLine.Text)
	}
	h.respond(s, i, b.String(), true)
}

func handleStatusCommand(h *Handler, s Session, i *discordgo.InteractionCreate, userID string) {
	roster, err := h.engine.Status(context.Background(), userID, h.now())
	if err != nil {
		if errors.Is(err, sim.ErrUnknownUser) {
			h.respond(s, i, "You don't have a profile yet. Run /start with your age first.", true)
			return
		}
		h.log.Error("Error fetching status", "user", userID, "error", err)
		h.respond(s, i, "Error fetching status.", true)
		return
	}
	h.respond(s, i, FormatRoster(roster), true)
}

// FormatRoster renders the status table as Discord markdown.
func FormatRoster(roster []sim.RosterEntry) string {
	var b strings.Builder
	b.WriteString("**Where you stand**\n")
	for _, r := range roster {
		presence := "🔴"
		if r.Reachable {
			presence = "🟢"
		}
		fmt.Fprintf(&b, "%s **%s**", presence, r.Name)
		if r.HasScore {
			fmt.Fprintf(&b, " · %d/%d %s", r.Score, relationship.MaxScore, strings.ReplaceAll(string(r.Tier), "_", " "))
		}
		switch {
		case r.Blocked:
			b.WriteString(" · blocked you")
		case r.Dating == world.UserPlayer:
			b.WriteString(" · dating you")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func handleApologizeCommand(h *Handler, s Session, i *discordgo.InteractionCreate, userID string) {
	key, ok := h.Selected(userID)
	if !ok {
		h.respond(s, i, "Pick who you're apologizing to with /talk first.", true)
		return
	}
	text := ""
	if o, ok := options(i)["text"]; ok {
		text = o.StringValue()
	}

	res, err := h.engine.Apologize(context.Background(), userID, key, text)
	switch {
	case errors.Is(err, sim.ErrNotBlocked):
		h.respond(s, i, "They haven't blocked you.", true)
		return
	case errors.Is(err, sim.ErrUnknownUser):
		h.respond(s, i, "You don't have a profile yet. Run /start with your age first.", true)
		return
	case err != nil:
		h.log.Error("Error handling apology", "user", userID, "persona", key, "error", err)
		h.respond(s, i, "Something went wrong. Try again later?", true)
		return
	}

	content := res.Reply
	if res.Accepted {
		content += "\n" + italic("You've been unblocked.")
	} else if res.Err == nil {
		content += "\n" + italic("Still blocked.")
	}
	h.respond(s, i, content, false)
}

func handleResetCommand(h *Handler, s Session, i *discordgo.InteractionCreate, userID string) {
	if err := h.engine.Reset(context.Background(), userID); err != nil {
		if errors.Is(err, sim.ErrUnknownUser) {
			h.respond(s, i, "You don't have a profile yet. Run /start with your age first.", true)
			return
		}
		h.log.Error("Error resetting profile", "user", userID, "error", err)
		h.respond(s, i, "Ugh, something went wrong trying to reset. Try again later?", true)
		return
	}
	h.respond(s, i, "The world has been reset. Everyone's forgotten the drama, but your messages are still here.", true)
}

func handleImageCommand(h *Handler, s Session, i *discordgo.InteractionCreate, userID string) {
	opts := options(i)
	id := ""
	if o, ok := opts["id"]; ok {
		id = o.StringValue()
	}

	if o, ok := opts["cancel"]; ok && o.BoolValue() {
		if err := h.engine.CancelImage(id); err != nil {
			h.respond(s, i, "There's no photo with that id.", true)
			return
		}
		h.respond(s, i, "Okay, never mind the photo.", true)
		return
	}

	snap, err := h.engine.PollImage(id)
	if errors.Is(err, jobs.ErrNotFound) {
		h.respond(s, i, "There's no photo with that id. It may have already been sent.", true)
		return
	}

	switch snap.Status {
	case jobs.StatusPending:
		h.respond(s, i, "Still taking it... check back in a moment.", true)
	case jobs.StatusDone:
		img := snap.Result
		h.respond(s, i, "", false, &discordgo.File{
			Name:        "photo" + media.Extension(img.MIMEType),
			ContentType: img.MIMEType,
			Reader:      bytes.NewReader(img.Data),
		})
	case jobs.StatusTimeout:
		h.respond(s, i, "They never sent it. Maybe ask again later.", true)
	case jobs.StatusCancelled:
		h.respond(s, i, "That photo was cancelled.", true)
	default:
		h.log.Warn("Image job failed", "user", userID, "id", id, "error", snap.Err)
		h.respond(s, i, "The photo didn't come through. Maybe ask again later.", true)
	}
}

func (h *Handler) InteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	h.HandleInteraction(&DiscordSession{s}, i)
}

// HandleInteraction handles all slash command interactions
func (h *Handler) HandleInteraction(s Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	userID, _, err := getUserFromInteraction(i)
	if err != nil {
		h.log.Warn("Interaction without a user", "error", err)
		return
	}

	commandName := i.ApplicationCommandData().Name
	if handler, ok := SlashCommandHandlers[commandName]; ok {
		handler(h, s, i, userID)
	} else {
		h.log.Warn("Unknown slash command", "command", commandName)
	}
}

// RegisterSlashCommands registers all slash commands with Discord
func (h *Handler) RegisterSlashCommands(s *discordgo.Session, guildID string) ([]*discordgo.ApplicationCommand, error) {
	commands := SlashCommands(h.engine.Catalog())
	registered := make([]*discordgo.ApplicationCommand, 0, len(commands))

	for _, cmd := range commands {
		// Register globally (guildID = "") or for a specific guild
		created, err := s.ApplicationCommandCreate(s.State.User.ID, guildID, cmd)
		if err != nil {
			return nil, fmt.Errorf("cannot create %q command: %w", cmd.Name, err)
		}
		registered = append(registered, created)
		h.log.Info("Registered command", "command", cmd.Name)
	}
	return registered, nil
}

// UnregisterSlashCommands removes all registered slash commands
func (h *Handler) UnregisterSlashCommands(s *discordgo.Session, guildID string, commands []*discordgo.ApplicationCommand) error {
	for _, cmd := range commands {
		if err := s.ApplicationCommandDelete(s.State.User.ID, guildID, cmd.ID); err != nil {
			return fmt.Errorf("cannot delete %q command: %w", cmd.Name, err)
		}
		h.log.Info("Unregistered command", "command", cmd.Name)
	}
	return nil
}
