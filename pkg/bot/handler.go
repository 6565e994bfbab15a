package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"socialsim/pkg/config"
	"socialsim/pkg/logger"
	"socialsim/pkg/sim"
)

// maxMessageLength matches a text message; longer DMs are bounced.
const maxMessageLength = 500

// Handler routes Discord DMs and slash commands to the engine. Each user
// texts one persona at a time, chosen with /talk.
type Handler struct {
	engine Engine
	botID  string
	log    *logger.Logger

	maxTyping time.Duration
	now       func() time.Time
	sleep     func(time.Duration)

	selected   map[string]string
	selectedMu sync.RWMutex

	processingUsers map[string]bool
	processingMu    sync.Mutex
}

func NewHandler(engine Engine, delays config.DelaySettings, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		engine:          engine,
		log:             log,
		maxTyping:       time.Duration(delays.MaxTypingSeconds) * time.Second,
		now:             time.Now,
		sleep:           time.Sleep,
		selected:        make(map[string]string),
		processingUsers: make(map[string]bool),
	}
}

func (h *Handler) SetBotID(id string) {
	h.botID = id
}

// Selected returns the persona the user is texting, if any.
func (h *Handler) Selected(userID string) (string, bool) {
	h.selectedMu.RLock()
	defer h.selectedMu.RUnlock()
	key, ok := h.selected[userID]
	return key, ok
}

func (h *Handler) selectPersona(userID, key string) {
	h.selectedMu.Lock()
	h.selected[userID] = key
	h.selectedMu.Unlock()
}

func (h *Handler) MessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.HandleMessage(&DiscordSession{s}, m)
}

func (h *Handler) HandleMessage(s Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == h.botID || m.Author.Bot {
		return
	}
	// Conversations are private; guild chatter is ignored.
	if m.GuildID != "" {
		return
	}

	if len(m.Content) > maxMessageLength {
		s.ChannelMessageSendReply(m.ChannelID, italic("that's a lot of text... try something shorter"), m.Reference())
		return
	}

	userID := m.Author.ID
	key, ok := h.Selected(userID)
	if !ok {
		s.ChannelMessageSend(m.ChannelID, italic("Pick someone to text with /talk first."))
		return
	}

	// One turn per user at a time; the engine serializes anyway, this just
	// avoids queueing typing indicators behind each other.
	h.processingMu.Lock()
	if h.processingUsers[userID] {
		h.processingMu.Unlock()
		s.ChannelMessageSendReply(m.ChannelID, italic("hold on, they're still typing"), m.Reference())
		return
	}
	h.processingUsers[userID] = true
	h.processingMu.Unlock()

	defer func() {
		h.processingMu.Lock()
		delete(h.processingUsers, userID)
		h.processingMu.Unlock()
	}()

	res, err := h.engine.Send(context.Background(), userID, key, m.Content, h.now())
	if err != nil {
		h.replyError(s, m.ChannelID, err)
		return
	}
	h.deliver(s, m.ChannelID, key, res, m.Reference())
}

// deliver renders a turn result into DMs.
func (h *Handler) deliver(s Session, channelID, key string, res *sim.TurnResult, reference *discordgo.MessageReference) {
	name := key
	if p, ok := h.engine.Catalog().Get(key); ok {
		name = p.Name
	}

	switch res.Outcome {
	case sim.OutcomeBlocked:
		s.ChannelMessageSend(channelID, italic("%s has blocked you. Use /apologize to try to make it right.", name))
		return
	case sim.OutcomeAway:
		if res.Reply != "" {
			h.sendSplitMessage(s, channelID, res.Reply, reference)
			s.ChannelMessageSend(channelID, italic("%s went offline", name))
		} else {
			s.ChannelMessageSend(channelID, italic("%s is offline. They'll see it later.", name))
		}
		return
	case sim.OutcomeReply:
		h.simulateTyping(s, channelID, typingDuration(res.DelaySeconds, h.maxTyping))
	}

	if res.Reply != "" {
		h.sendSplitMessage(s, channelID, res.Reply, reference)
	}
	if res.Transition.Blocked {
		s.ChannelMessageSend(channelID, italic("%s blocked you.", name))
	}
	if res.ImageJobID != "" {
		s.ChannelMessageSend(channelID, italic("%s is taking a photo... check with /image id:%s", name, res.ImageJobID))
	}
}

func (h *Handler) replyError(s Session, channelID string, err error) {
	msg := "Something went wrong. Try again in a bit?"
	switch {
	case errors.Is(err, sim.ErrUnknownUser):
		msg = "You don't have a profile yet. Run /start with your age first."
	case errors.Is(err, sim.ErrUnknownPersona):
		msg = "I don't know who that is. Pick someone with /talk."
	default:
		h.log.Error("Turn failed", "error", err)
	}
	s.ChannelMessageSend(channelID, italic("%s", msg))
}
