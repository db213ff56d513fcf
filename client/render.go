package client

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"nexus-chat/protocol"
)

// Renderer formats server frames for the terminal.
type Renderer struct {
	out io.Writer
}

func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

func (r *Renderer) Prompt(label string) {
	color.Fprintf(r.out, "<cyan>%s</>", label)
}

func (r *Renderer) Welcome(ok protocol.LoginOK) {
	color.Fprintf(r.out, "<bold>%s</>\n", ok.Motd)
	r.Rooms(ok.Rooms)
	r.Online(ok.Online)
}

func (r *Renderer) Chat(event protocol.ChatEvent, me string) {
	name := color.White.Sprint(event.From)
	if event.From == me {
		name = color.Green.Sprint(event.From)
	}
	color.Fprintf(r.out, "<gray>%s</> <blue>#%s</> %s: %s\n",
		event.At.Local().Format("15:04"), event.Room, name, event.Body)
}

func (r *Renderer) DM(dm protocol.DMEvent, me string) {
	direction := fmt.Sprintf("%s -> %s", dm.From, dm.To)
	if dm.From == me {
		direction = fmt.Sprintf("you -> %s", dm.To)
	}
	color.Fprintf(r.out, "<gray>%s</> <magenta>[DM]</> %s: %s\n",
		dm.At.Local().Format("15:04"), direction, dm.Body)
}

func (r *Renderer) System(text string) {
	color.Fprintf(r.out, "  <yellow>* %s</>\n", text)
}

func (r *Renderer) Error(text string) {
	color.Fprintf(r.out, "  <red>! %s</>\n", text)
}

func (r *Renderer) RoomJoined(joined protocol.RoomJoined) {
	color.Fprintf(r.out, "<blue>--- #%s</> <gray>%s</>\n", joined.Room, joined.Topic)
	for _, msg := range joined.History {
		r.historyLine(msg)
	}
	color.Fprintf(r.out, "<gray>members: %s</>\n", joinNames(joined.Members))
}

func (r *Renderer) History(history protocol.HistorySet) {
	color.Fprintf(r.out, "<blue>--- history of #%s</>\n", history.Room)
	for _, msg := range history.Messages {
		r.historyLine(msg)
	}
}

func (r *Renderer) DMThread(thread protocol.DMThread) {
	color.Fprintf(r.out, "<magenta>--- DMs with %s</>\n", thread.With)
	for _, msg := range thread.Messages {
		r.historyLine(msg)
	}
}

func (r *Renderer) historyLine(msg protocol.Message) {
	color.Fprintf(r.out, "  <gray>%s</> %s: %s\n",
		msg.At.Local().Format("Jan 02 15:04"), msg.From, msg.Body)
}

func (r *Renderer) Rooms(rooms []protocol.RoomSummary) {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Room", "Topic", "Owner", "Members"})
	for _, room := range rooms {
		table.Append([]string{room.Name, room.Topic, room.Owner, strconv.Itoa(room.Members)})
	}
	table.Render()
}

func (r *Renderer) Online(users []string) {
	color.Fprintf(r.out, "<green>online (%d):</> %s\n", len(users), joinNames(users))
}

func (r *Renderer) Profile(profile protocol.Profile) {
	status := color.Gray.Sprint("offline")
	if profile.Online {
		status = color.Green.Sprintf("online in #%s", profile.Room)
	}
	bio := profile.Bio
	if bio == "" {
		bio = "No bio set."
	}
	color.Fprintf(r.out, "<bold>%s</> (%s)\n  joined %s\n  %s\n",
		profile.User, status, profile.Joined.Local().Format(time.DateOnly), bio)
}

func (r *Renderer) Help() {
	table := tablewriter.NewWriter(r.out)
	table.SetHeader([]string{"Command", "Description"})
	for _, row := range [][]string{
		{"/join <room>", "Join or switch to a chat room"},
		{"/create <room> [topic]", "Create a new room"},
		{"/delete <room>", "Delete a room you own"},
		{"/rooms", "List all rooms"},
		{"/online", "Show online users"},
		{"/dm <user> <msg>", "Send a private message"},
		{"/dms <user>", "View DM history with a user"},
		{"/history [room] [n]", "Show last n messages (default 50)"},
		{"/whois <user>", "View user profile"},
		{"/bio <text>", "Set your bio"},
		{"/clear", "Clear the screen"},
		{"/help", "Show this help"},
		{"/quit", "Disconnect and exit"},
	} {
		table.Append(row)
	}
	table.Render()
}

func (r *Renderer) Clear() {
	fmt.Fprint(r.out, "\033[2J\033[H")
}

func joinNames(names []string) string {
	return strings.Join(names, ", ")
}
