// Package event defines the inbound event model the routing engine consumes.
// Raw platform updates are converted into a closed set of event types so the
// rest of the bot can switch over them exhaustively.
package event

import (
	"strings"

	"github.com/go-telegram/bot/models"
)

// ChatKind classifies the chat an event originated from.
type ChatKind string

const (
	ChatPrivate    ChatKind = "private"
	ChatGroup      ChatKind = "group"
	ChatSupergroup ChatKind = "supergroup"
	ChatChannel    ChatKind = "channel"
	ChatUnknown    ChatKind = "unknown"
)

// Chat identifies the conversation an event arrived in.
type Chat struct {
	ID    int64
	Kind  ChatKind
	Title string
}

// IsPrivate reports whether the chat is a one-on-one conversation.
func (c Chat) IsPrivate() bool {
	return c.Kind == ChatPrivate
}

// IsGroup reports whether the chat is a group or supergroup.
func (c Chat) IsGroup() bool {
	return c.Kind == ChatGroup || c.Kind == ChatSupergroup
}

// User identifies the sender of an event.
type User struct {
	ID        int64
	FirstName string
	IsBot     bool
}

// AssetRef points at an uploaded file on the platform side.
type AssetRef struct {
	FileID string
	MIME   string // mime hint for documents; empty for photos
	Photo  bool
}

// IsImage reports whether the asset is usable as an image.
func (a AssetRef) IsImage() bool {
	return a.Photo || strings.HasPrefix(a.MIME, "image/")
}

// Event is the closed union of inbound events. Implementations live in this
// package only.
type Event interface {
	isEvent()
}

// Command is an explicit slash command.
type Command struct {
	Name      string
	Args      []string
	Sender    User
	Chat      Chat
	MessageID int
}

// ButtonPress is a tap on an inline keyboard button.
type ButtonPress struct {
	Payload   string
	Sender    User
	Chat      Chat
	MessageID int // message the keyboard was attached to
}

// TextMessage is plain free text.
type TextMessage struct {
	Body      string
	Sender    User
	Chat      Chat
	MessageID int
}

// MediaMessage carries a photo or document attachment.
type MediaMessage struct {
	Asset     AssetRef
	Sender    User
	Chat      Chat
	MessageID int
}

// MembershipChange reports users joining a chat.
type MembershipChange struct {
	Joined []User
	Chat   Chat
}

func (Command) isEvent()          {}
func (ButtonPress) isEvent()      {}
func (TextMessage) isEvent()      {}
func (MediaMessage) isEvent()     {}
func (MembershipChange) isEvent() {}

// Kind returns a short label for an event, used for logging and metrics.
func Kind(ev Event) string {
	switch ev.(type) {
	case Command:
		return "command"
	case ButtonPress:
		return "button_press"
	case TextMessage:
		return "text"
	case MediaMessage:
		return "media"
	case MembershipChange:
		return "membership"
	default:
		return "unknown"
	}
}

// FromUpdate converts a raw Telegram update into an Event. The second return
// value is false when the update carries nothing the bot handles.
func FromUpdate(update *models.Update) (Event, bool) {
	if update == nil {
		return nil, false
	}

	switch {
	case update.CallbackQuery != nil:
		return fromCallback(update.CallbackQuery)
	case update.Message != nil:
		return fromMessage(update.Message)
	default:
		return nil, false
	}
}

func fromCallback(query *models.CallbackQuery) (Event, bool) {
	payload := strings.TrimSpace(query.Data)
	if payload == "" {
		return nil, false
	}

	press := ButtonPress{
		Payload: payload,
		Sender:  fromUser(&query.From),
	}

	if query.Message.Type == models.MaybeInaccessibleMessageTypeMessage && query.Message.Message != nil {
		press.Chat = fromChat(&query.Message.Message.Chat)
		press.MessageID = query.Message.Message.ID
	} else if query.Message.Type == models.MaybeInaccessibleMessageTypeInaccessibleMessage && query.Message.InaccessibleMessage != nil {
		press.Chat = fromChat(&query.Message.InaccessibleMessage.Chat)
	}

	return press, true
}

func fromMessage(msg *models.Message) (Event, bool) {
	chat := fromChat(&msg.Chat)
	sender := fromUser(msg.From)

	if len(msg.NewChatMembers) > 0 {
		joined := make([]User, 0, len(msg.NewChatMembers))
		for _, member := range msg.NewChatMembers {
			member := member
			joined = append(joined, fromUser(&member))
		}
		return MembershipChange{Joined: joined, Chat: chat}, true
	}

	if len(msg.Photo) > 0 {
		// Telegram sends multiple sizes; keep the largest.
		return MediaMessage{
			Asset:     AssetRef{FileID: msg.Photo[len(msg.Photo)-1].FileID, Photo: true},
			Sender:    sender,
			Chat:      chat,
			MessageID: msg.ID,
		}, true
	}

	if msg.Document != nil {
		return MediaMessage{
			Asset:     AssetRef{FileID: msg.Document.FileID, MIME: msg.Document.MimeType},
			Sender:    sender,
			Chat:      chat,
			MessageID: msg.ID,
		}, true
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return nil, false
	}

	if strings.HasPrefix(text, "/") {
		name, args := parseCommand(text)
		if name == "" {
			return nil, false
		}
		return Command{
			Name:      name,
			Args:      args,
			Sender:    sender,
			Chat:      chat,
			MessageID: msg.ID,
		}, true
	}

	return TextMessage{
		Body:      text,
		Sender:    sender,
		Chat:      chat,
		MessageID: msg.ID,
	}, true
}

// parseCommand splits "/name@botname arg1 arg2" into a lowercased name and its
// arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}

	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}

	name = strings.ToLower(name)
	if name == "" {
		return "", nil
	}

	var args []string
	if len(fields) > 1 {
		args = fields[1:]
	}

	return name, args
}

func fromChat(chat *models.Chat) Chat {
	if chat == nil {
		return Chat{Kind: ChatUnknown}
	}

	kind := ChatUnknown
	switch chat.Type {
	case "private":
		kind = ChatPrivate
	case "group":
		kind = ChatGroup
	case "supergroup":
		kind = ChatSupergroup
	case "channel":
		kind = ChatChannel
	}

	return Chat{ID: chat.ID, Kind: kind, Title: chat.Title}
}

func fromUser(user *models.User) User {
	if user == nil {
		return User{}
	}

	return User{ID: user.ID, FirstName: user.FirstName, IsBot: user.IsBot}
}
