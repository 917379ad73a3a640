package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"sendify-chat/domain"
	"sendify-chat/domain/event"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

type view struct {
	out     io.Writer
	colours bool
}

func (v view) paint(style color.Style, s string) string {
	if !v.colours {
		return s
	}
	return style.Render(s)
}

func (v view) message(m event.MessageEvent) {
	at := time.UnixMilli(m.CreatedAt).Format("15:04")
	author := v.paint(color.New(color.FgGreen, color.OpBold), m.Username)
	if m.Username == event.SystemAuthor {
		author = v.paint(color.New(color.FgYellow), m.Username)
	}

	body := m.Content
	if kind, err := domain.ParseKind(m.Type); err == nil && kind.IsAttachment() {
		body = fmt.Sprintf("[%s] %s (%s bytes) %s", kind, m.Content, m.Size, m.ObjectURL)
	}
	fmt.Fprintf(v.out, "%s %s: %s\n", v.paint(color.New(color.FgGray), at), author, body)
}

func (v view) roster(r event.RosterEvent) {
	fmt.Fprintln(v.out, v.paint(color.New(color.FgCyan, color.OpBold), "# "+r.Room))
	table := tablewriter.NewWriter(v.out)
	table.SetHeader([]string{"User ID", "Username", "Connection"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for _, u := range r.Users {
		table.Append([]string{u.UserID, u.Username, shortID(u.ConnectionID)})
	}
	table.Render()
}

func (v view) failure(err error) {
	fmt.Fprintln(v.out, v.paint(color.New(color.FgRed), "! "+err.Error()))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// parseInput turns a typed line into a send request. Attachments are typed as
// "/file <url> <name> <size>" or "/img <url> <name> <size>"; the size is the
// rest of the line ("2.05 kB").
func parseInput(line, room, channelID string) (domain.SendRequest, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return domain.SendRequest{}, false
	}
	request := domain.SendRequest{Content: line, Type: string(domain.KindText), Room: room, ChannelID: channelID}

	fields := strings.Fields(line)
	if len(fields) >= 4 && (fields[0] == "/file" || fields[0] == "/img") {
		request.Type = strings.TrimPrefix(fields[0], "/")
		request.ObjectURL = fields[1]
		request.Content = fields[2]
		request.Size = strings.Join(fields[3:], " ")
	}
	return request, true
}
