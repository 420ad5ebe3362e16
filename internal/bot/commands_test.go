package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/planbot/internal/domain"
	"github.com/m3rciful/planbot/internal/i18n"
)

// fakeCtx implements the tele.Context methods the handlers under test touch.
// Anything else panics through the nil embed, which is exactly what we want.
type fakeCtx struct {
	tele.Context
	sender *tele.User
	cb     *tele.Callback
	values map[string]any

	sent     []string
	sentOpts []*tele.SendOptions
	toasts   []string
}

func newFakeCtx() *fakeCtx {
	return &fakeCtx{
		sender: &tele.User{ID: 42, FirstName: "Ana"},
		values: map[string]any{},
	}
}

func (f *fakeCtx) Sender() *tele.User       { return f.sender }
func (f *fakeCtx) Chat() *tele.Chat         { return &tele.Chat{ID: 42} }
func (f *fakeCtx) Update() tele.Update      { return tele.Update{ID: 1} }
func (f *fakeCtx) Callback() *tele.Callback { return f.cb }
func (f *fakeCtx) Get(key string) any       { return f.values[key] }
func (f *fakeCtx) Set(key string, v any)    { f.values[key] = v }

func (f *fakeCtx) Send(what any, opts ...any) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			f.sentOpts = append(f.sentOpts, so)
		}
	}
	return nil
}

func (f *fakeCtx) Respond(resp ...*tele.CallbackResponse) error {
	for _, r := range resp {
		f.toasts = append(f.toasts, r.Text)
	}
	return nil
}

type fakeMembers struct {
	byTG    map[int64]*domain.Member
	upserts int
}

func (f *fakeMembers) GetByTelegramID(_ context.Context, tgID int64) (*domain.Member, error) {
	m, ok := f.byTG[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMembers) Upsert(_ context.Context, m *domain.Member) (*domain.Member, error) {
	f.upserts++
	cp := *m
	cp.ID = int64(100 + f.upserts)
	f.byTG[m.TelegramID] = &cp
	out := cp
	return &out, nil
}

type fakeEvents struct {
	upcoming []domain.Event
	setlists map[int64][]domain.Song
	slots    map[int64][]domain.Assignment
}

func (f *fakeEvents) Create(context.Context, *domain.Event, []int64, []int64) (int64, error) {
	return 0, nil
}

func (f *fakeEvents) Upcoming(context.Context, int) ([]domain.Event, error) {
	return f.upcoming, nil
}

func (f *fakeEvents) Setlist(_ context.Context, eventID int64) ([]domain.Song, error) {
	return f.setlists[eventID], nil
}

func (f *fakeEvents) Assignments(_ context.Context, eventID int64) ([]domain.Assignment, error) {
	return f.slots[eventID], nil
}

func (f *fakeEvents) AssignMember(_ context.Context, eventID, roleID, memberID int64) error {
	for i, s := range f.slots[eventID] {
		if s.RoleID == roleID {
			id := memberID
			f.slots[eventID][i].MemberID = &id
			return nil
		}
	}
	return domain.ErrNotFound
}

type fakeAttendance struct {
	answers  map[int64][]domain.Attendance
	recorded []domain.Attendance
}

func (f *fakeAttendance) SetResponse(_ context.Context, eventID, memberID int64, r domain.Response) error {
	f.recorded = append(f.recorded, domain.Attendance{EventID: eventID, MemberID: memberID, Response: r})
	return nil
}

func (f *fakeAttendance) ForEvent(_ context.Context, eventID int64) ([]domain.Attendance, error) {
	return f.answers[eventID], nil
}

func int64Ptr(v int64) *int64 { return &v }

func newTestApp(t *testing.T, events *fakeEvents, members *fakeMembers, att *fakeAttendance) *App {
	t.Helper()
	catalog, err := i18n.Load("en")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return &App{
		catalog:    catalog,
		render:     newRenderer(catalog),
		members:    members,
		events:     events,
		attendance: att,
	}
}

func nextEventFakes() (*fakeEvents, *fakeAttendance) {
	events := &fakeEvents{
		upcoming: []domain.Event{{
			ID:       1,
			Title:    "Sunday Service",
			StartsAt: time.Date(2025, 1, 26, 10, 30, 0, 0, time.UTC),
			Location: "Main Hall",
		}},
		setlists: map[int64][]domain.Song{1: {
			{ID: 3, Title: "Amazing Grace"},
			{ID: 7, Title: "How Great"},
		}},
		slots: map[int64][]domain.Assignment{1: {
			{EventID: 1, RoleID: 2, RoleName: "Guitar"},
			{EventID: 1, RoleID: 5, RoleName: "Vocals", MemberID: int64Ptr(9), MemberName: "Ana"},
		}},
	}
	att := &fakeAttendance{answers: map[int64][]domain.Attendance{1: {
		{Response: domain.ResponseYes},
		{Response: domain.ResponseYes},
		{Response: domain.ResponseMaybe},
	}}}
	return events, att
}

func TestAgendaShowsNextEventDetails(t *testing.T) {
	events, att := nextEventFakes()
	app := newTestApp(t, events, &fakeMembers{byTG: map[int64]*domain.Member{}}, att)

	c := newFakeCtx()
	if err := app.cmdAgenda(c); err != nil {
		t.Fatalf("agenda: %v", err)
	}
	if len(c.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(c.sent))
	}

	text := c.sent[0]
	for _, want := range []string{
		"Sunday Service",
		"Setlist: Amazing Grace, How Great",
		"Roles: Vocals: Ana",
		"Answers: 👍 2 · 👎 0 · 🤔 1",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("agenda text missing %q:\n%s", want, text)
		}
	}

	// One row of attendance buttons, one row with the open Guitar slot.
	rows := c.sentOpts[0].ReplyMarkup.InlineKeyboard
	if len(rows) != 2 {
		t.Fatalf("expected 2 button rows, got %d", len(rows))
	}
	if len(rows[1]) != 1 || rows[1][0].Text != "🙋 Guitar" {
		t.Fatalf("open slot button: %+v", rows[1])
	}
}

func TestAttendanceCallbackReusesExistingMember(t *testing.T) {
	events, att := nextEventFakes()
	members := &fakeMembers{byTG: map[int64]*domain.Member{
		42: {ID: 9, TelegramID: 42, FirstName: "Ana"},
	}}
	app := newTestApp(t, events, members, att)

	c := newFakeCtx()
	c.cb = &tele.Callback{Data: "\fatt_yes|1"}
	if err := app.attendanceCallback(domain.ResponseYes)(c); err != nil {
		t.Fatalf("attendance: %v", err)
	}

	if members.upserts != 0 {
		t.Fatalf("known member must not be re-upserted, got %d upserts", members.upserts)
	}
	last := att.recorded[len(att.recorded)-1]
	if last.EventID != 1 || last.MemberID != 9 || last.Response != domain.ResponseYes {
		t.Fatalf("recorded answer: %+v", last)
	}
	if len(c.toasts) != 1 || !strings.Contains(c.toasts[0], "Your answer is saved") {
		t.Fatalf("toasts: %v", c.toasts)
	}
}

func TestAttendanceCallbackRegistersNewMember(t *testing.T) {
	events, att := nextEventFakes()
	members := &fakeMembers{byTG: map[int64]*domain.Member{}}
	app := newTestApp(t, events, members, att)

	c := newFakeCtx()
	c.cb = &tele.Callback{Data: "\fatt_maybe|1"}
	if err := app.attendanceCallback(domain.ResponseMaybe)(c); err != nil {
		t.Fatalf("attendance: %v", err)
	}
	if members.upserts != 1 {
		t.Fatalf("first contact must register the member, got %d upserts", members.upserts)
	}
}

func TestClaimRoleFillsOpenSlot(t *testing.T) {
	events, att := nextEventFakes()
	members := &fakeMembers{byTG: map[int64]*domain.Member{
		42: {ID: 9, TelegramID: 42, FirstName: "Ana"},
	}}
	app := newTestApp(t, events, members, att)

	c := newFakeCtx()
	c.cb = &tele.Callback{Data: "\frole_claim|1:2"}
	if err := app.cbClaimRole(c); err != nil {
		t.Fatalf("claim: %v", err)
	}

	guitar := events.slots[1][0]
	if !guitar.Filled() || *guitar.MemberID != 9 {
		t.Fatalf("slot should be filled by member 9: %+v", guitar)
	}
	if len(c.toasts) != 1 || !strings.Contains(c.toasts[0], "The slot is yours") {
		t.Fatalf("toasts: %v", c.toasts)
	}
}

func TestClaimRoleGoneSlot(t *testing.T) {
	events, att := nextEventFakes()
	members := &fakeMembers{byTG: map[int64]*domain.Member{
		42: {ID: 9, TelegramID: 42, FirstName: "Ana"},
	}}
	app := newTestApp(t, events, members, att)

	c := newFakeCtx()
	c.cb = &tele.Callback{Data: "\frole_claim|1:99"}
	if err := app.cbClaimRole(c); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(c.toasts) != 1 || !strings.Contains(c.toasts[0], "no longer open") {
		t.Fatalf("expected gone toast, got %v", c.toasts)
	}
}
