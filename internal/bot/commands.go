package bot

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/planbot/core/telegram/callbacks"
	"github.com/m3rciful/planbot/core/telegram/commands"
	"github.com/m3rciful/planbot/core/telegram/format"
	tghelpers "github.com/m3rciful/planbot/core/telegram/helpers"
	"github.com/m3rciful/planbot/core/telegram/keyboard"
	"github.com/m3rciful/planbot/internal/dialog"
	"github.com/m3rciful/planbot/internal/domain"
	"github.com/m3rciful/planbot/internal/flows"
)

// Registry callback keys outside the dialog engine's vocabulary.
const (
	cbPickSong   = "pick_song"
	cbPickChords = "pick_chords"
	cbPickRole   = "pick_role"
	cbAttYes     = "att_yes"
	cbAttNo      = "att_no"
	cbAttMaybe   = "att_maybe"
	cbClaimRole  = "role_claim"
)

func (a *App) registerCommands() {
	a.registry.RegisterCommand("/start", commands.Command{
		Handler:     a.cmdStart,
		Description: "Introduction and registration",
	})
	a.registry.RegisterCommand("/help", commands.Command{
		Handler:     a.cmdHelp,
		Description: "List available commands",
	})
	a.registry.RegisterCommand("/newevent", commands.Command{
		Handler:     a.cmdNewEvent,
		Description: "Plan a new event",
	})
	a.registry.RegisterCommand("/agenda", commands.Command{
		Handler:     a.cmdAgenda,
		Description: "Show upcoming events",
	})
	a.registry.RegisterCommand("/songs", commands.Command{
		Handler:     a.cmdSongs,
		Description: "Show the repertoire",
	})
	a.registry.RegisterCommand("/editsong", commands.Command{
		Handler:     a.cmdEditSong,
		Description: "Edit a song's details",
	})
	a.registry.RegisterCommand("/chords", commands.Command{
		Handler:     a.cmdChords,
		Description: "Add a chord sheet to a song",
	})
	a.registry.RegisterCommand("/renamerole", commands.Command{
		Handler:     a.cmdRenameRole,
		Description: "Rename a serving role",
		AdminOnly:   true,
	})
	a.registry.RegisterCommand("/cancel", commands.Command{
		Handler:     a.cmdCancel,
		Description: "Abort the current dialog",
	})

	_ = a.registry.RegisterCallback(cbPickSong, a.cbStartSongEdit)
	_ = a.registry.RegisterCallback(cbPickChords, a.cbStartChords)
	_ = a.registry.RegisterCallback(cbPickRole, a.cbStartRename)
	_ = a.registry.RegisterCallback(cbAttYes, a.attendanceCallback(domain.ResponseYes))
	_ = a.registry.RegisterCallback(cbAttNo, a.attendanceCallback(domain.ResponseNo))
	_ = a.registry.RegisterCallback(cbAttMaybe, a.attendanceCallback(domain.ResponseMaybe))
	_ = a.registry.RegisterCallback(cbClaimRole, a.cbClaimRole)

	a.registry.SetTextFallback(a.cmdHelp)
}

func (a *App) cmdStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	member, err := a.members.Upsert(ctx, &domain.Member{
		TelegramID: sender.ID,
		FirstName:  sender.FirstName,
		LastName:   sender.LastName,
		Username:   sender.Username,
		IsAdmin:    sender.ID == a.cfg.Core.Telegram.AdminID,
	})
	if err != nil {
		return err
	}
	return a.render.Text(c, "cmd.start", member.DisplayName())
}

func (a *App) cmdHelp(c tele.Context) error {
	return a.render.Text(c, "cmd.help")
}

func (a *App) cmdNewEvent(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	d, err := a.engine.Start(ctx, c.Sender().ID, flows.KindEventWizard)
	if err != nil {
		return err
	}
	return a.render.Render(c, d)
}

func (a *App) cmdCancel(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	cancelled, err := a.engine.Cancel(ctx, c.Sender().ID)
	if err != nil {
		return err
	}
	if !cancelled {
		return a.render.Text(c, "dialog.nothing")
	}
	return a.render.Text(c, "dialog.cancelled")
}

func (a *App) cmdAgenda(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	events, err := a.events.Upcoming(ctx, 10)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return a.render.Text(c, "agenda.empty")
	}

	lang := a.render.langFor(c)
	var b strings.Builder
	b.WriteString(a.catalog.T(lang, "agenda.header"))
	for _, e := range events {
		b.WriteString("\n")
		b.WriteString(a.catalog.T(lang, "agenda.entry",
			e.Title, e.StartsAt.Format("02/01/2006 15:04"), e.Location))
	}

	// The nearest event gets the detail block: setlist, filled roles, and
	// the answer tally. Its buttons cover attendance plus open role slots.
	next := events[0]
	setlist, err := a.events.Setlist(ctx, next.ID)
	if err != nil {
		return err
	}
	if len(setlist) > 0 {
		titles := make([]string, 0, len(setlist))
		for _, s := range setlist {
			titles = append(titles, s.Title)
		}
		b.WriteString("\n\n")
		b.WriteString(a.catalog.T(lang, "agenda.setlist", strings.Join(titles, ", ")))
	}

	slots, err := a.events.Assignments(ctx, next.ID)
	if err != nil {
		return err
	}
	filled := make([]string, 0, len(slots))
	open := make([]domain.Assignment, 0, len(slots))
	for _, slot := range slots {
		if slot.Filled() {
			filled = append(filled, slot.RoleName+": "+slot.MemberName)
			continue
		}
		open = append(open, slot)
	}
	if len(filled) > 0 {
		b.WriteString("\n")
		b.WriteString(a.catalog.T(lang, "agenda.roles", strings.Join(filled, ", ")))
	}

	answers, err := a.attendance.ForEvent(ctx, next.ID)
	if err != nil {
		return err
	}
	var yes, no, maybe int
	for _, ans := range answers {
		switch ans.Response {
		case domain.ResponseYes:
			yes++
		case domain.ResponseNo:
			no++
		default:
			maybe++
		}
	}
	b.WriteString("\n")
	b.WriteString(a.catalog.T(lang, "agenda.attendance", yes, no, maybe))

	id := strconv.FormatInt(next.ID, 10)
	rows := [][]keyboard.InlineBtn{{
		{Text: a.catalog.T(lang, "agenda.att_yes"), Unique: cbAttYes, Data: id},
		{Text: a.catalog.T(lang, "agenda.att_no"), Unique: cbAttNo, Data: id},
		{Text: a.catalog.T(lang, "agenda.att_maybe"), Unique: cbAttMaybe, Data: id},
	}}
	for chunk := 0; chunk < len(open); chunk += 2 {
		row := make([]keyboard.InlineBtn, 0, 2)
		for _, slot := range open[chunk:min(chunk+2, len(open))] {
			row = append(row, keyboard.InlineBtn{
				Text:   a.catalog.T(lang, "agenda.claim", slot.RoleName),
				Unique: cbClaimRole,
				Data:   id + ":" + strconv.FormatInt(slot.RoleID, 10),
			})
		}
		rows = append(rows, row)
	}
	return c.Send(b.String(), &tele.SendOptions{ReplyMarkup: keyboard.InlineButtonsRows(rows...)})
}

func (a *App) cmdSongs(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	songs, err := a.songs.ListSongs(ctx)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return a.render.Text(c, "songs.empty")
	}

	lang := a.render.langFor(c)
	var b strings.Builder
	b.WriteString(a.catalog.T(lang, "songs.header", len(songs)))
	for _, s := range songs {
		// Titles are user input, escape them before the Markdown send.
		title, err := format.EscapeMarkdown(s.Title, format.MarkdownV1)
		if err != nil {
			title = s.Title
		}
		fmt.Fprintf(&b, "\n• *%s*", title)
		if s.SongKey != "" {
			fmt.Fprintf(&b, " (%s)", s.SongKey)
		}
		if s.Tempo > 0 {
			fmt.Fprintf(&b, " %d BPM", s.Tempo)
		}
	}
	return tghelpers.SendMD(c, b.String())
}

// songPicker sends the repertoire as buttons carrying the given callback key.
func (a *App) songPicker(c tele.Context, cbKey string) error {
	ctx := tghelpers.BuildContext(c)
	songs, err := a.songs.ListSongs(ctx)
	if err != nil {
		return err
	}
	if len(songs) == 0 {
		return a.render.Text(c, "songs.empty")
	}

	btns := make([]keyboard.InlineBtn, 0, len(songs))
	for _, s := range songs {
		btns = append(btns, keyboard.InlineBtn{
			Text:   s.Title,
			Unique: cbKey,
			Data:   strconv.FormatInt(s.ID, 10),
		})
	}
	lang := a.render.langFor(c)
	return c.Send(a.catalog.T(lang, "songs.pick"),
		&tele.SendOptions{ReplyMarkup: keyboard.InlineButtons(btns)})
}

func (a *App) cmdEditSong(c tele.Context) error {
	return a.songPicker(c, cbPickSong)
}

func (a *App) cmdChords(c tele.Context) error {
	return a.songPicker(c, cbPickChords)
}

func (a *App) cmdRenameRole(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	roles, err := a.roles.ListRoles(ctx)
	if err != nil {
		return err
	}
	if len(roles) == 0 {
		return a.render.Text(c, "roles.empty")
	}

	btns := make([]keyboard.InlineBtn, 0, len(roles))
	for _, r := range roles {
		btns = append(btns, keyboard.InlineBtn{
			Text:   r.Name,
			Unique: cbPickRole,
			Data:   strconv.FormatInt(r.ID, 10),
		})
	}
	lang := a.render.langFor(c)
	return c.Send(a.catalog.T(lang, "roles.pick"),
		&tele.SendOptions{ReplyMarkup: keyboard.InlineButtonsNPerRow(btns, 2)})
}

// pickedSong resolves the song id carried by a picker callback.
func (a *App) pickedSong(c tele.Context) (*domain.Song, error) {
	ctx := tghelpers.BuildContext(c)
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return nil, err
	}
	return a.songs.GetSong(ctx, id)
}

func (a *App) cbStartSongEdit(c tele.Context) error {
	song, err := a.pickedSong(c)
	if err != nil {
		return a.render.Render(c, dialog.Msg("songedit.song_gone"))
	}
	ctx := tghelpers.BuildContext(c)
	d, err := a.engine.Start(ctx, c.Sender().ID, flows.KindSongEdit, func(p dialog.Payload) {
		draft := p.(*flows.SongEditDraft)
		draft.SongID = song.ID
		draft.SongTitle = song.Title
	})
	if err != nil {
		return err
	}
	return a.render.Render(c, d)
}

func (a *App) cbStartChords(c tele.Context) error {
	song, err := a.pickedSong(c)
	if err != nil {
		return a.render.Render(c, dialog.Msg("chords.song_gone"))
	}
	ctx := tghelpers.BuildContext(c)
	d, err := a.engine.Start(ctx, c.Sender().ID, flows.KindChordEntry, func(p dialog.Payload) {
		draft := p.(*flows.ChordDraft)
		draft.SongID = song.ID
		draft.SongTitle = song.Title
	})
	if err != nil {
		return err
	}
	return a.render.Render(c, d)
}

func (a *App) cbStartRename(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return a.render.Render(c, dialog.Msg("rename.role_gone"))
	}
	role, err := a.roles.GetRole(ctx, id)
	if err != nil {
		return a.render.Render(c, dialog.Msg("rename.role_gone"))
	}
	d, err := a.engine.Start(ctx, c.Sender().ID, flows.KindFieldRename, func(p dialog.Payload) {
		draft := p.(*flows.RenameDraft)
		draft.RoleID = role.ID
		draft.OldName = role.Name
	})
	if err != nil {
		return err
	}
	return a.render.Render(c, d)
}
