// Package domain contains core concepts of the chat system.
// This file defines chat messages, their kinds and the record exchanged with
// the store.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind string

const (
	KindText  Kind = "text"
	KindFile  Kind = "file"
	KindImage Kind = "img"
)

// BodyDelimiter joins object url, display name and size of an attachment in
// the single content field the store accepts. History readers split on it.
const BodyDelimiter = "#"

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindText, KindFile, KindImage:
		return k, nil
	default:
		return "", fmt.Errorf("unknown message type %q", s)
	}
}

// IsAttachment is true for kinds whose body references an uploaded object.
func (k Kind) IsAttachment() bool {
	return k == KindFile || k == KindImage
}

// ChannelID and UserNumber exceed 53-bit float precision: they travel as
// exact JSON integers toward the store and as strings toward clients.
type ChannelID uint64

type UserNumber uint64

func ParseChannelID(s string) (ChannelID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid channel id %q: %w", s, err)
	}
	return ChannelID(v), nil
}

func (c ChannelID) String() string { return strconv.FormatUint(uint64(c), 10) }

func ParseUserNumber(s string) (UserNumber, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", s, err)
	}
	return UserNumber(v), nil
}

func (u UserNumber) String() string { return strconv.FormatUint(uint64(u), 10) }

// Body is the structured content of a message. For text only Content is set;
// for attachments Content is the original filename or caption.
type Body struct {
	Content   string
	ObjectURL string
	Size      string
}

// Validate rejects attachment fields that would not survive Encode: none of
// them may contain the delimiter.
func (b Body) Validate(kind Kind) error {
	if !kind.IsAttachment() {
		return nil
	}
	for field, value := range map[string]string{"objectUrl": b.ObjectURL, "content": b.Content, "size": b.Size} {
		if strings.Contains(value, BodyDelimiter) {
			return fmt.Errorf("%s must not contain %q", field, BodyDelimiter)
		}
	}
	return nil
}

// Encode packs the body into the store's content field.
func (b Body) Encode(kind Kind) string {
	if !kind.IsAttachment() {
		return b.Content
	}
	return strings.Join([]string{b.ObjectURL, b.Content, b.Size}, BodyDelimiter)
}

// DecodeBody is the inverse of Encode. The url ends at the first delimiter and
// the size starts after the last one, so a name holding the delimiter still
// decodes.
func DecodeBody(kind Kind, raw string) (Body, error) {
	if !kind.IsAttachment() {
		return Body{Content: raw}, nil
	}
	first := strings.Index(raw, BodyDelimiter)
	last := strings.LastIndex(raw, BodyDelimiter)
	if first < 0 || first == last {
		return Body{}, fmt.Errorf("malformed %s body: want 3 fields in %q", kind, raw)
	}
	return Body{
		ObjectURL: raw[:first],
		Content:   raw[first+len(BodyDelimiter) : last],
		Size:      raw[last+len(BodyDelimiter):],
	}, nil
}

// ChatMessage is one unit of conversation content.
type ChatMessage struct {
	ChannelID ChannelID
	Author    Identity
	Kind      Kind
	Body      Body
	CreatedAt time.Time
}

// StoreRecord is the wire shape of POST /message on the store.
type StoreRecord struct {
	ChannelID ChannelID  `json:"channel_id"`
	UserID    UserNumber `json:"user_id"`
	Type      Kind       `json:"type"`
	Content   string     `json:"content"`
}

func (m ChatMessage) Record() (StoreRecord, error) {
	userID, err := m.Author.Number()
	if err != nil {
		return StoreRecord{}, err
	}
	return StoreRecord{
		ChannelID: m.ChannelID,
		UserID:    userID,
		Type:      m.Kind,
		Content:   m.Body.Encode(m.Kind),
	}, nil
}

// FromRecord projects a persisted record back into a message. The author's
// display name and the creation time are not part of the record.
func FromRecord(rec StoreRecord, author Identity, createdAt time.Time) (ChatMessage, error) {
	body, err := DecodeBody(rec.Type, rec.Content)
	if err != nil {
		return ChatMessage{}, err
	}
	return ChatMessage{
		ChannelID: rec.ChannelID,
		Author:    Identity{UserID: rec.UserID.String(), Username: author.Username},
		Kind:      rec.Type,
		Body:      body,
		CreatedAt: createdAt,
	}, nil
}
