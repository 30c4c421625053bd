package event

import (
	"testing"

	"github.com/go-telegram/bot/models"
)

func TestFromUpdateCommand(t *testing.T) {
	update := &models.Update{
		Message: &models.Message{
			ID:   7,
			From: &models.User{ID: 10, FirstName: "Ada"},
			Chat: models.Chat{ID: 10, Type: "private"},
			Text: "/Start@ConciergeBot tickets extra",
		},
	}

	ev, ok := FromUpdate(update)
	if !ok {
		t.Fatalf("expected update to convert")
	}

	cmd, ok := ev.(Command)
	if !ok {
		t.Fatalf("expected Command, got %T", ev)
	}

	if cmd.Name != "start" {
		t.Fatalf("expected lowercased name without bot suffix, got %q", cmd.Name)
	}
	if len(cmd.Args) != 2 || cmd.Args[0] != "tickets" || cmd.Args[1] != "extra" {
		t.Fatalf("expected args [tickets extra], got %v", cmd.Args)
	}
	if !cmd.Chat.IsPrivate() {
		t.Fatalf("expected private chat kind, got %s", cmd.Chat.Kind)
	}
	if cmd.Sender.ID != 10 || cmd.Sender.FirstName != "Ada" {
		t.Fatalf("unexpected sender %+v", cmd.Sender)
	}
}

func TestFromUpdateTextAndChatKinds(t *testing.T) {
	tests := []struct {
		name     string
		chatType models.ChatType
		isGroup  bool
	}{
		{"group", "group", true},
		{"supergroup", "supergroup", true},
		{"private", "private", false},
		{"channel", "channel", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			update := &models.Update{
				Message: &models.Message{
					ID:   1,
					From: &models.User{ID: 2},
					Chat: models.Chat{ID: -5, Type: tt.chatType},
					Text: "  hello tickets  ",
				},
			}

			ev, ok := FromUpdate(update)
			if !ok {
				t.Fatalf("expected update to convert")
			}

			text, ok := ev.(TextMessage)
			if !ok {
				t.Fatalf("expected TextMessage, got %T", ev)
			}
			if text.Body != "hello tickets" {
				t.Fatalf("expected trimmed body, got %q", text.Body)
			}
			if text.Chat.IsGroup() != tt.isGroup {
				t.Fatalf("chat kind %s: IsGroup() = %v, want %v", tt.chatType, text.Chat.IsGroup(), tt.isGroup)
			}
		})
	}
}

func TestFromUpdatePhotoPicksLargestSize(t *testing.T) {
	update := &models.Update{
		Message: &models.Message{
			ID:   3,
			From: &models.User{ID: 4},
			Chat: models.Chat{ID: 4, Type: "private"},
			Photo: []models.PhotoSize{
				{FileID: "small"},
				{FileID: "large"},
			},
		},
	}

	ev, ok := FromUpdate(update)
	if !ok {
		t.Fatalf("expected update to convert")
	}

	media, ok := ev.(MediaMessage)
	if !ok {
		t.Fatalf("expected MediaMessage, got %T", ev)
	}
	if media.Asset.FileID != "large" {
		t.Fatalf("expected largest photo size, got %q", media.Asset.FileID)
	}
	if !media.Asset.IsImage() {
		t.Fatalf("expected photo asset to be an image")
	}
}

func TestFromUpdateDocumentMIME(t *testing.T) {
	tests := []struct {
		name    string
		mime    string
		isImage bool
	}{
		{"png document", "image/png", true},
		{"pdf document", "application/pdf", false},
		{"no mime", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			update := &models.Update{
				Message: &models.Message{
					ID:       5,
					From:     &models.User{ID: 6},
					Chat:     models.Chat{ID: 6, Type: "private"},
					Document: &models.Document{FileID: "doc-1", MimeType: tt.mime},
				},
			}

			ev, ok := FromUpdate(update)
			if !ok {
				t.Fatalf("expected update to convert")
			}

			media, ok := ev.(MediaMessage)
			if !ok {
				t.Fatalf("expected MediaMessage, got %T", ev)
			}
			if media.Asset.IsImage() != tt.isImage {
				t.Fatalf("IsImage() = %v, want %v", media.Asset.IsImage(), tt.isImage)
			}
		})
	}
}

func TestFromUpdateMembershipChange(t *testing.T) {
	update := &models.Update{
		Message: &models.Message{
			Chat: models.Chat{ID: -100, Type: "supergroup", Title: "Community"},
			NewChatMembers: []models.User{
				{ID: 1, FirstName: "Ada"},
				{ID: 2, FirstName: "Bot", IsBot: true},
			},
		},
	}

	ev, ok := FromUpdate(update)
	if !ok {
		t.Fatalf("expected update to convert")
	}

	change, ok := ev.(MembershipChange)
	if !ok {
		t.Fatalf("expected MembershipChange, got %T", ev)
	}
	if len(change.Joined) != 2 {
		t.Fatalf("expected 2 joined users, got %d", len(change.Joined))
	}
	if !change.Joined[1].IsBot {
		t.Fatalf("expected bot flag to carry over")
	}
	if change.Chat.Title != "Community" {
		t.Fatalf("expected chat title, got %q", change.Chat.Title)
	}
}

func TestFromUpdateCallback(t *testing.T) {
	update := &models.Update{
		CallbackQuery: &models.CallbackQuery{
			From: models.User{ID: 9},
			Data: " tickets ",
			Message: models.MaybeInaccessibleMessage{
				Type: models.MaybeInaccessibleMessageTypeMessage,
				Message: &models.Message{
					ID:   11,
					Chat: models.Chat{ID: -200, Type: "group"},
				},
			},
		},
	}

	ev, ok := FromUpdate(update)
	if !ok {
		t.Fatalf("expected update to convert")
	}

	press, ok := ev.(ButtonPress)
	if !ok {
		t.Fatalf("expected ButtonPress, got %T", ev)
	}
	if press.Payload != "tickets" {
		t.Fatalf("expected trimmed payload, got %q", press.Payload)
	}
	if press.Chat.ID != -200 || press.MessageID != 11 {
		t.Fatalf("expected originating chat and message, got %+v", press)
	}
}

func TestFromUpdateIgnoresEmpty(t *testing.T) {
	tests := []struct {
		name   string
		update *models.Update
	}{
		{"nil update", nil},
		{"empty update", &models.Update{}},
		{"empty text", &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1, Type: "private"}, Text: "   "}}},
		{"bare slash", &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1, Type: "private"}, Text: "/"}}},
		{"empty callback", &models.Update{CallbackQuery: &models.CallbackQuery{Data: "  "}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := FromUpdate(tt.update); ok {
				t.Fatalf("expected update to be ignored")
			}
		})
	}
}

func TestKindLabels(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Command{}, "command"},
		{ButtonPress{}, "button_press"},
		{TextMessage{}, "text"},
		{MediaMessage{}, "media"},
		{MembershipChange{}, "membership"},
	}

	for _, tt := range tests {
		if got := Kind(tt.ev); got != tt.want {
			t.Fatalf("Kind(%T) = %q, want %q", tt.ev, got, tt.want)
		}
	}
}
