package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalizeRoom(t *testing.T) {
	req := require.New(t)
	req.Equal("general", NormalizeRoom("  General "))
	req.Equal("", NormalizeRoom("   "))
}

func TestNewIdentity_Keeps_Display_Name(t *testing.T) {
	req := require.New(t)

	identity := NewIdentity(" 42 ", "Alice")

	req.Equal("42", identity.UserID)
	req.Equal("Alice", identity.Username)
	req.True(identity.Bound())
	req.False(NewIdentity("42", " ").Bound())
	req.False(NewIdentity("", "alice").Bound())
}

func TestIdentity_Normalized(t *testing.T) {
	req := require.New(t)

	normalized := NewIdentity("42", "  Alice ").Normalized()

	req.Equal(Identity{UserID: "42", Username: "alice"}, normalized)
}

func TestBody_Encode_Decode_Attachment(t *testing.T) {
	req := require.New(t)
	body := Body{Content: "holiday.png", ObjectURL: "https://object.local/abc", Size: "2048"}

	// When an image body is packed for the store
	raw := body.Encode(KindImage)

	// Then the three fields are joined by the reserved delimiter
	req.Equal("https://object.local/abc#holiday.png#2048", raw)

	// And decoding restores the structured body
	decoded, err := DecodeBody(KindImage, raw)
	req.NoError(err)
	req.Equal(body, decoded)
}

func TestBody_Text_Is_Not_Packed(t *testing.T) {
	req := require.New(t)
	body := Body{Content: "a#b"}

	req.Equal("a#b", body.Encode(KindText))
	decoded, err := DecodeBody(KindText, "a#b")
	req.NoError(err)
	req.Equal(body, decoded)
}

func TestDecodeBody_Malformed(t *testing.T) {
	for _, raw := range []string{"only-one-field", "https://object.local/f#report.pdf"} {
		_, err := DecodeBody(KindFile, raw)
		require.Error(t, err, raw)
	}
}

func TestDecodeBody_Name_Holding_Delimiter(t *testing.T) {
	req := require.New(t)

	// Given a record written before names were checked
	decoded, err := DecodeBody(KindFile, "https://object.local/f#draft#2.pdf#10 kB")

	// Then url and size are taken from the ends
	req.NoError(err)
	req.Equal(Body{ObjectURL: "https://object.local/f", Content: "draft#2.pdf", Size: "10 kB"}, decoded)
}

func TestBody_Validate(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		body    Body
		wantErr bool
	}{
		{"Text may hold the delimiter", KindText, Body{Content: "#general"}, false},
		{"Clean attachment", KindFile, Body{Content: "cv.pdf", ObjectURL: "https://object.local/cv", Size: "2.05 kB"}, false},
		{"Delimiter in name", KindFile, Body{Content: "a#b.pdf", ObjectURL: "https://object.local/cv"}, true},
		{"Delimiter in url", KindImage, Body{Content: "a.png", ObjectURL: "https://object.local/a#b"}, true},
		{"Delimiter in size", KindImage, Body{Content: "a.png", ObjectURL: "https://object.local/a", Size: "1#2"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.body.Validate(tt.kind)
			require.Equal(t, tt.wantErr, err != nil, "err=%v", err)
		})
	}
}

func TestStoreRecord_Keeps_Exact_Precision(t *testing.T) {
	req := require.New(t)
	// 2^53 + 1 is not representable as a float64
	channelID, err := ParseChannelID("9007199254740993")
	req.NoError(err)

	msg := ChatMessage{
		ChannelID: channelID,
		Author:    NewIdentity("18446744073709551615", "bob"),
		Kind:      KindText,
		Body:      Body{Content: "hello"},
		CreatedAt: time.Now(),
	}
	record, err := msg.Record()
	req.NoError(err)

	bytes, err := json.Marshal(record)
	req.NoError(err)
	req.JSONEq(`{"channel_id":9007199254740993,"user_id":18446744073709551615,"type":"text","content":"hello"}`, string(bytes))
}

func TestChatMessage_Record_Rejects_Non_Numeric_Author(t *testing.T) {
	msg := ChatMessage{Author: NewIdentity("alice", "alice"), Kind: KindText}
	_, err := msg.Record()
	require.Error(t, err)
}

func TestFromRecord_Projects_Attachment(t *testing.T) {
	req := require.New(t)
	at := time.UnixMilli(1700000000000)
	record := StoreRecord{
		ChannelID: 42,
		UserID:    7,
		Type:      KindFile,
		Content:   "https://object.local/f#report.pdf#10",
	}

	msg, err := FromRecord(record, NewIdentity("7", "carol"), at)

	req.NoError(err)
	req.Equal(ChannelID(42), msg.ChannelID)
	req.Equal("7", msg.Author.UserID)
	req.Equal("carol", msg.Author.Username)
	req.Equal(Body{Content: "report.pdf", ObjectURL: "https://object.local/f", Size: "10"}, msg.Body)
	req.Equal(at, msg.CreatedAt)
}

func TestParseKind(t *testing.T) {
	req := require.New(t)
	kind, err := ParseKind("img")
	req.NoError(err)
	req.True(kind.IsAttachment())
	_, err = ParseKind("video")
	req.Error(err)
}
