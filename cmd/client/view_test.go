package main

import (
	"bytes"
	"testing"
	"time"

	"sendify-chat/domain/event"

	"github.com/stretchr/testify/require"
)

func TestView_Message(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	v := view{out: &out}
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)

	v.message(event.MessageEvent{Username: "alice", Content: "hello", Type: "text", CreatedAt: at.UnixMilli()})
	v.message(event.MessageEvent{Username: "bob", Content: "cv.pdf", Type: "file", ObjectURL: "https://object.local/cv", Size: "2048", CreatedAt: at.UnixMilli()})

	req.Equal("09:30 alice: hello\n09:30 bob: [file] cv.pdf (2048 bytes) https://object.local/cv\n", out.String())
}

func TestView_Roster(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer
	v := view{out: &out}

	v.roster(event.RosterEvent{Room: "general", Users: []event.RosterUser{
		{UserID: "7", Username: "alice", ConnectionID: "0b7e5a3c-1111-2222-3333-444455556666"},
		{UserID: "8", Username: "bob", ConnectionID: "c1"},
	}})

	rendered := out.String()
	req.Contains(rendered, "# general")
	req.Contains(rendered, "alice")
	req.Contains(rendered, "0b7e5a3c")
	req.NotContains(rendered, "0b7e5a3c-1111")
	req.Contains(rendered, "bob")
}

func TestParseInput(t *testing.T) {
	req := require.New(t)

	_, ok := parseInput("   ", "general", "42")
	req.False(ok)

	text, ok := parseInput(" hello there ", "general", "42")
	req.True(ok)
	req.Equal("text", text.Type)
	req.Equal("hello there", text.Content)
	req.Equal("42", text.ChannelID)

	img, ok := parseInput("/img https://object.local/abc holiday.png 2048", "general", "42")
	req.True(ok)
	req.Equal("img", img.Type)
	req.Equal("https://object.local/abc", img.ObjectURL)
	req.Equal("holiday.png", img.Content)
	req.Equal("2048", img.Size)

	file, ok := parseInput("/file https://object.local/cv cv.pdf 2.05 kB", "general", "42")
	req.True(ok)
	req.Equal("file", file.Type)
	req.Equal("cv.pdf", file.Content)
	req.Equal("2.05 kB", file.Size)
}
