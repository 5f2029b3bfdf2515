package chathub

import "pairchat/backend/internal/models"

type MessageKind int

const (
	KindText MessageKind = iota
	KindPicture
)

// Message is an opaque payload relayed between session partners.
type Message struct {
	Kind    MessageKind
	Text    string
	Picture []byte
}

func TextMessage(text string) Message {
	return Message{Kind: KindText, Text: text}
}

func PictureMessage(data []byte) Message {
	return Message{Kind: KindPicture, Picture: data}
}

// relay hands msg to the partner's connection without inspecting it.
func relay(ch EventChannel, connID, senderID, roomID string, msg Message) error {
	out := models.ChatMessage{SenderID: senderID, RoomID: roomID}
	switch msg.Kind {
	case KindPicture:
		out.Type = models.TypePicture
		out.Picture = msg.Picture
	default:
		out.Type = models.TypeMessage
		out.Content = msg.Text
	}
	return ch.Send(connID, out)
}
