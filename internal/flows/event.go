package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/planbot/internal/dialog"
	"github.com/m3rciful/planbot/internal/domain"
)

// KindEventWizard is the event creation dialog.
const KindEventWizard dialog.Kind = "event-wizard"

// Event wizard steps.
const (
	StepTemplate dialog.Step = "template"
	StepDate     dialog.Step = "date"
	StepTime     dialog.Step = "time"
	StepLocation dialog.Step = "location"
	StepSongs    dialog.Step = "songs"
	StepConfirm  dialog.Step = "confirm"
)

// Event wizard token families.
const (
	FamTemplate   dialog.Family = "wiz_tpl"
	FamDate       dialog.Family = "wiz_date"
	FamDateCustom dialog.Family = "wiz_date_custom"
	FamTime       dialog.Family = "wiz_time"
	FamLocation   dialog.Family = "wiz_loc"
	FamSongToggle dialog.Family = "wiz_song"
	FamSongsDone  dialog.Family = "wiz_songs_done"
	FamSongsSkip  dialog.Family = "wiz_songs_skip"
)

const (
	isoDate     = "2006-01-02"
	displayDate = "02/01/2006"
	clockFormat = "15:04"
)

// EventDraft accumulates the wizard's answers. Dates are stored in ISO form
// and rendered in day-first form.
type EventDraft struct {
	TemplateCode string  `json:"template_code"`
	TitleKey     string  `json:"title_key"`
	Weekday      int     `json:"weekday"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Location     string  `json:"location"`
	SongIDs      []int64 `json:"song_ids"`

	// CustomDate marks that the date step is waiting for a typed date
	// after the "other date" button was pressed.
	CustomDate bool `json:"custom_date"`
}

// DialogKind implements dialog.Payload.
func (*EventDraft) DialogKind() dialog.Kind { return KindEventWizard }

// EventWizard builds the event creation graph over the domain stores.
type EventWizard struct {
	templates domain.TemplateStore
	locations domain.LocationStore
	songs     domain.SongStore
	events    domain.EventStore
	roles     domain.RoleStore

	// titler resolves a template title key in the team's default language
	// so committed events carry a concrete title.
	titler func(key string) string
	now    func() time.Time
}

// NewEventWizard wires the wizard's dependencies.
func NewEventWizard(
	templates domain.TemplateStore,
	locations domain.LocationStore,
	songs domain.SongStore,
	events domain.EventStore,
	roles domain.RoleStore,
	titler func(key string) string,
) *EventWizard {
	if titler == nil {
		titler = func(key string) string { return key }
	}
	return &EventWizard{
		templates: templates,
		locations: locations,
		songs:     songs,
		events:    events,
		roles:     roles,
		titler:    titler,
		now:       time.Now,
	}
}

// Graph returns the wizard's static step table.
func (w *EventWizard) Graph() *dialog.Graph {
	return &dialog.Graph{
		Kind:  KindEventWizard,
		Start: StepTemplate,
		Steps: map[dialog.Step]dialog.StepSpec{
			StepTemplate: {
				Modality: dialog.ModButton,
				Accepts:  []dialog.Family{FamTemplate},
				Prompt:   w.promptTemplate,
				Handler:  w.handleTemplate,
			},
			StepDate: {
				Modality: dialog.ModButton | dialog.ModText,
				Accepts:  []dialog.Family{FamDate, FamDateCustom},
				Prompt:   w.promptDate,
				Handler:  w.handleDate,
				Prev:     StepTemplate,
			},
			StepTime: {
				Modality: dialog.ModButton | dialog.ModText,
				Accepts:  []dialog.Family{FamTime},
				Prompt:   w.promptTime,
				Handler:  w.handleTime,
				Prev:     StepDate,
			},
			StepLocation: {
				Modality: dialog.ModButton | dialog.ModText,
				Accepts:  []dialog.Family{FamLocation},
				Prompt:   w.promptLocation,
				Handler:  w.handleLocation,
				Prev:     StepTime,
			},
			StepSongs: {
				Modality: dialog.ModButton | dialog.ModText,
				Accepts:  []dialog.Family{FamSongToggle, FamSongsDone, FamSongsSkip},
				Prompt:   w.promptSongs,
				Handler:  w.handleSongs,
				Prev:     StepLocation,
			},
			StepConfirm: {
				Modality: dialog.ModButton,
				Accepts:  []dialog.Family{dialog.FamConfirm, dialog.FamEdit},
				Prompt:   w.promptConfirm,
				Handler:  w.handleConfirm,
				Prev:     StepSongs,
			},
		},
		// Song toggles stay actionable from keyboards rendered before the
		// session moved on, mutating the draft without changing step.
		CrossStep: map[dialog.Family]dialog.HandlerFunc{
			FamSongToggle: w.toggleSongCross,
		},
		NewPayload: func() dialog.Payload { return &EventDraft{} },
	}
}

func (w *EventWizard) promptTemplate(ctx context.Context, _ *dialog.Session) (dialog.Directive, error) {
	templates, err := w.templates.ListTemplates(ctx)
	if err != nil {
		return dialog.Directive{}, err
	}
	var rows [][]dialog.Button
	for _, t := range templates {
		rows = append(rows, []dialog.Button{
			dialog.KeyBtn(t.TitleKey, dialog.NewToken(FamTemplate, t.Code)),
		})
	}
	return dialog.Msg("wizard.pick_template").WithRows(rows...), nil
}

func (w *EventWizard) handleTemplate(ctx context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	tpl, err := w.templates.GetTemplate(ctx, in.Token.Arg)
	if errors.Is(err, domain.ErrNotFound) {
		return dialog.Stay(dialog.Toast("wizard.template_gone")), nil
	}
	if err != nil {
		return dialog.Result{}, err
	}
	draft := s.Payload.(*EventDraft)
	draft.TemplateCode = tpl.Code
	draft.TitleKey = tpl.TitleKey
	draft.Weekday = tpl.Weekday
	return dialog.Goto(StepDate), nil
}

func (w *EventWizard) promptDate(_ context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*EventDraft)
	if draft.CustomDate {
		return dialog.Msg("wizard.type_date"), nil
	}

	var rows [][]dialog.Button
	day := w.now()
	for i := 0; i < 4; i++ {
		day = nextTemplateDay(day, draft.Weekday)
		rows = append(rows, []dialog.Button{
			dialog.LabelBtn(day.Format(displayDate), dialog.NewToken(FamDate, day.Format(isoDate))),
		})
	}
	rows = append(rows, []dialog.Button{
		dialog.KeyBtn("wizard.custom_date", dialog.NewToken(FamDateCustom, "")),
	})
	return dialog.Msg("wizard.pick_date").WithRows(rows...), nil
}

// nextTemplateDay finds the next day matching the template weekday, or
// simply the next day when the weekday is negative (any day fits).
func nextTemplateDay(from time.Time, weekday int) time.Time {
	d := from.AddDate(0, 0, 1)
	if weekday < 0 {
		return d
	}
	for int(d.Weekday()) != weekday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func (w *EventWizard) handleDate(_ context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	draft := s.Payload.(*EventDraft)

	if in.IsButton() {
		switch in.Token.Family {
		case FamDateCustom:
			draft.CustomDate = true
			return dialog.Stay(dialog.Msg("wizard.type_date")), nil
		case FamDate:
			if _, err := time.Parse(isoDate, in.Token.Arg); err != nil {
				return dialog.Stay(dialog.Msg("wizard.date_invalid")), nil
			}
			draft.Date = in.Token.Arg
			draft.CustomDate = false
			return dialog.Goto(StepTime), nil
		}
	}

	iso, ok := parseTypedDate(in.Text)
	if !ok {
		return dialog.Stay(dialog.Msg("wizard.date_invalid")), nil
	}
	draft.Date = iso
	draft.CustomDate = false
	return dialog.Goto(StepTime), nil
}

// parseTypedDate accepts a day-first or ISO date and returns the ISO form.
// Impossible calendar dates are rejected.
func parseTypedDate(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range []string{displayDate, isoDate} {
		if d, err := time.Parse(layout, text); err == nil {
			return d.Format(isoDate), true
		}
	}
	return "", false
}

func (w *EventWizard) promptTime(_ context.Context, _ *dialog.Session) (dialog.Directive, error) {
	row := []dialog.Button{}
	for _, t := range []string{"09:00", "10:30", "18:00", "19:00"} {
		row = append(row, dialog.LabelBtn(t, dialog.NewToken(FamTime, t)))
	}
	return dialog.Msg("wizard.pick_time").WithRows(row[:2], row[2:]), nil
}

func (w *EventWizard) handleTime(_ context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	value := in.Text
	if in.IsButton() {
		value = in.Token.Arg
	}
	clock, ok := parseClock(value)
	if !ok {
		return dialog.Stay(dialog.Msg("wizard.time_invalid")), nil
	}
	s.Payload.(*EventDraft).Time = clock
	return dialog.Goto(StepLocation), nil
}

// parseClock validates a 24-hour HH:MM value and normalizes it.
func parseClock(text string) (string, bool) {
	t, err := time.Parse(clockFormat, strings.TrimSpace(text))
	if err != nil {
		return "", false
	}
	return t.Format(clockFormat), true
}

func (w *EventWizard) promptLocation(ctx context.Context, _ *dialog.Session) (dialog.Directive, error) {
	locations, err := w.locations.ListLocations(ctx)
	if err != nil {
		return dialog.Directive{}, err
	}
	var rows [][]dialog.Button
	for _, loc := range locations {
		rows = append(rows, []dialog.Button{
			dialog.LabelBtn(loc.Name, dialog.NewToken(FamLocation, loc.Name)),
		})
	}
	return dialog.Msg("wizard.pick_location").WithRows(rows...), nil
}

func (w *EventWizard) handleLocation(_ context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	name := strings.TrimSpace(in.Text)
	if in.IsButton() {
		name = in.Token.Arg
	}
	if name == "" {
		return dialog.Stay(dialog.Msg("wizard.location_invalid")), nil
	}
	s.Payload.(*EventDraft).Location = name
	return dialog.Goto(StepSongs), nil
}

func (w *EventWizard) promptSongs(ctx context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*EventDraft)
	songs, err := w.songs.ListSongs(ctx)
	if err != nil {
		return dialog.Directive{}, err
	}

	selected := make(map[int64]bool, len(draft.SongIDs))
	for _, id := range draft.SongIDs {
		selected[id] = true
	}

	var rows [][]dialog.Button
	for _, song := range songs {
		label := song.Title
		if selected[song.ID] {
			label = "✅ " + label
		}
		rows = append(rows, []dialog.Button{
			dialog.LabelBtn(label, dialog.NewToken(FamSongToggle, strconv.FormatInt(song.ID, 10))),
		})
	}
	rows = append(rows, []dialog.Button{
		dialog.KeyBtn("wizard.songs_done", dialog.NewToken(FamSongsDone, "")),
		dialog.KeyBtn("wizard.songs_skip", dialog.NewToken(FamSongsSkip, "")),
	})
	return dialog.Msg("wizard.pick_songs", len(draft.SongIDs)).WithRows(rows...), nil
}

func (w *EventWizard) handleSongs(ctx context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	draft := s.Payload.(*EventDraft)

	if in.IsButton() {
		switch in.Token.Family {
		case FamSongsDone, FamSongsSkip:
			return dialog.Goto(StepConfirm), nil
		case FamSongToggle:
			notice, err := w.toggleSong(ctx, draft, in.Token.Arg)
			if err != nil {
				return dialog.Result{}, err
			}
			d, err := w.promptSongs(ctx, s)
			if err != nil {
				return dialog.Result{}, err
			}
			d.Notice = notice
			return dialog.Stay(d.AsEdit()), nil
		}
	}

	// Free text adds a brand new song and selects it.
	title := strings.TrimSpace(in.Text)
	if title == "" {
		return dialog.Stay(dialog.Msg("wizard.song_title_empty")), nil
	}
	song, err := w.songs.CreateSong(ctx, title)
	if err != nil {
		return dialog.Result{}, err
	}
	draft.SongIDs = append(draft.SongIDs, song.ID)
	d, err := w.promptSongs(ctx, s)
	if err != nil {
		return dialog.Result{}, err
	}
	return dialog.Stay(d), nil
}

// toggleSong flips the selection state of one song id. A song deleted since
// the keyboard was rendered is a no-op with a notice.
func (w *EventWizard) toggleSong(ctx context.Context, draft *EventDraft, arg string) (notice string, err error) {
	id, convErr := strconv.ParseInt(arg, 10, 64)
	if convErr != nil {
		return "wizard.song_gone", nil
	}

	for i, selected := range draft.SongIDs {
		if selected == id {
			draft.SongIDs = append(draft.SongIDs[:i], draft.SongIDs[i+1:]...)
			return "", nil
		}
	}

	if _, err := w.songs.GetSong(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "wizard.song_gone", nil
		}
		return "", err
	}
	draft.SongIDs = append(draft.SongIDs, id)
	return "", nil
}

// toggleSongCross handles song toggles arriving while the session sits on a
// later step. The draft changes; the step does not.
func (w *EventWizard) toggleSongCross(ctx context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	draft := s.Payload.(*EventDraft)
	notice, err := w.toggleSong(ctx, draft, in.Token.Arg)
	if err != nil {
		return dialog.Result{}, err
	}
	if notice == "" {
		notice = "wizard.song_toggled"
	}
	return dialog.Stay(dialog.Toast(notice)), nil
}

func (w *EventWizard) promptConfirm(_ context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*EventDraft)
	display := draft.Date
	if d, err := time.Parse(isoDate, draft.Date); err == nil {
		display = d.Format(displayDate)
	}
	d := dialog.Msg("wizard.confirm",
		dialog.KeyArg(draft.TitleKey), display, draft.Time, draft.Location, len(draft.SongIDs))
	d.Rows = [][]dialog.Button{
		{
			dialog.KeyBtn("dialog.confirm", dialog.NewToken(dialog.FamConfirm, "")),
			dialog.KeyBtn("dialog.edit", dialog.NewToken(dialog.FamEdit, "")),
		},
		{
			dialog.KeyBtn("dialog.back", dialog.NewToken(dialog.FamBack, "")),
			dialog.KeyBtn("dialog.cancel", dialog.NewToken(dialog.FamCancel, "")),
		},
	}
	return d, nil
}

func (w *EventWizard) handleConfirm(ctx context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	draft := s.Payload.(*EventDraft)

	if in.Token.Family == dialog.FamEdit {
		// Edit means a full restart of data collection, not a partial back.
		*draft = EventDraft{}
		return dialog.Goto(StepTemplate), nil
	}

	startsAt, err := time.ParseInLocation(isoDate+" "+clockFormat, draft.Date+" "+draft.Time, time.Local)
	if err != nil {
		return dialog.Stay(dialog.Msg("wizard.commit_failed")), nil
	}

	// Every serving role gets an open slot on the new event, created in the
	// same transaction as the event itself.
	roles, err := w.roles.ListRoles(ctx)
	if err != nil {
		return dialog.Stay(dialog.Msg("wizard.commit_failed")), nil
	}
	roleIDs := make([]int64, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
	}

	event := &domain.Event{
		TemplateCode: draft.TemplateCode,
		Title:        w.titler(draft.TitleKey),
		StartsAt:     startsAt,
		Location:     draft.Location,
		CreatedBy:    s.OwnerID,
	}
	eventID, err := w.events.Create(ctx, event, draft.SongIDs, roleIDs)
	if err != nil {
		// The session survives so confirm can be retried.
		return dialog.Stay(dialog.Msg("wizard.commit_failed")), nil
	}
	return dialog.Terminate(dialog.Msg("wizard.created", eventID)), nil
}
