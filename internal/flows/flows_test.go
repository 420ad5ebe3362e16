package flows

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/m3rciful/planbot/internal/dialog"
	"github.com/m3rciful/planbot/internal/domain"
)

// fakeStores backs every flow test with in-memory domain data.
type fakeStores struct {
	templates []domain.EventTemplate
	locations []domain.Location

	songs      map[int64]*domain.Song
	nextSongID int64

	roles map[int64]*domain.Role

	created    []committedEvent
	failCommit bool
	failUpdate bool
}

type committedEvent struct {
	event   domain.Event
	songIDs []int64
	roleIDs []int64
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		templates: []domain.EventTemplate{
			{ID: 1, Code: "sunday", TitleKey: "template.sunday", Weekday: 0},
			{ID: 2, Code: "rehearsal", TitleKey: "template.rehearsal", Weekday: 5},
		},
		locations: []domain.Location{
			{ID: 1, Name: "Main Hall"},
			{ID: 2, Name: "Youth Room"},
		},
		songs: map[int64]*domain.Song{
			3: {ID: 3, Title: "Amazing Grace"},
			7: {ID: 7, Title: "How Great"},
		},
		nextSongID: 100,
		roles: map[int64]*domain.Role{
			5: {ID: 5, Name: "Vocals"},
		},
	}
}

func (f *fakeStores) ListTemplates(context.Context) ([]domain.EventTemplate, error) {
	return f.templates, nil
}

func (f *fakeStores) GetTemplate(_ context.Context, code string) (*domain.EventTemplate, error) {
	for i := range f.templates {
		if f.templates[i].Code == code {
			return &f.templates[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStores) ListLocations(context.Context) ([]domain.Location, error) {
	return f.locations, nil
}

func (f *fakeStores) ListSongs(context.Context) ([]domain.Song, error) {
	ids := make([]int64, 0, len(f.songs))
	for id := range f.songs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]domain.Song, 0, len(ids))
	for _, id := range ids {
		out = append(out, *f.songs[id])
	}
	return out, nil
}

func (f *fakeStores) GetSong(_ context.Context, id int64) (*domain.Song, error) {
	s, ok := f.songs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStores) CreateSong(_ context.Context, title string) (*domain.Song, error) {
	f.nextSongID++
	s := &domain.Song{ID: f.nextSongID, Title: title}
	f.songs[s.ID] = s
	return s, nil
}

func (f *fakeStores) UpdateSongField(_ context.Context, id int64, field domain.SongField, value string) error {
	if f.failUpdate {
		return errors.New("storage offline")
	}
	s, ok := f.songs[id]
	if !ok {
		return domain.ErrNotFound
	}
	switch field {
	case domain.FieldTitle:
		s.Title = value
	case domain.FieldAuthor:
		s.Author = value
	case domain.FieldKey:
		s.SongKey = value
	case domain.FieldTempo:
		s.Tempo = mustAtoi(value)
	}
	return nil
}

func (f *fakeStores) SetChords(_ context.Context, id int64, chords string) error {
	if f.failUpdate {
		return errors.New("storage offline")
	}
	s, ok := f.songs[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Chords = chords
	return nil
}

func (f *fakeStores) Create(_ context.Context, e *domain.Event, songIDs, roleIDs []int64) (int64, error) {
	if f.failCommit {
		return 0, errors.New("storage offline")
	}
	f.created = append(f.created, committedEvent{
		event:   *e,
		songIDs: append([]int64(nil), songIDs...),
		roleIDs: append([]int64(nil), roleIDs...),
	})
	return int64(len(f.created)), nil
}

func (f *fakeStores) Upcoming(context.Context, int) ([]domain.Event, error) {
	out := make([]domain.Event, 0, len(f.created))
	for _, c := range f.created {
		out = append(out, c.event)
	}
	return out, nil
}

func (f *fakeStores) Setlist(context.Context, int64) ([]domain.Song, error) {
	return nil, nil
}

func (f *fakeStores) Assignments(_ context.Context, eventID int64) ([]domain.Assignment, error) {
	if int(eventID) > len(f.created) {
		return nil, nil
	}
	c := f.created[eventID-1]
	out := make([]domain.Assignment, 0, len(c.roleIDs))
	for _, roleID := range c.roleIDs {
		out = append(out, domain.Assignment{EventID: eventID, RoleID: roleID})
	}
	return out, nil
}

func (f *fakeStores) AssignMember(_ context.Context, eventID, roleID, _ int64) error {
	if int(eventID) > len(f.created) {
		return domain.ErrNotFound
	}
	for _, id := range f.created[eventID-1].roleIDs {
		if id == roleID {
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeStores) ListRoles(context.Context) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(f.roles))
	for _, r := range f.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStores) GetRole(_ context.Context, id int64) (*domain.Role, error) {
	r, ok := f.roles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStores) RenameRole(_ context.Context, id int64, name string) error {
	if f.failUpdate {
		return errors.New("storage offline")
	}
	r, ok := f.roles[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Name = name
	return nil
}

func mustAtoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// testTitler resolves the template title keys used in tests.
func testTitler(key string) string {
	if key == "template.sunday" {
		return "Serviciu"
	}
	return key
}

const testOwner int64 = 77

// newFlowEngine builds an engine with every flow registered over the fakes.
func newFlowEngine(t *testing.T, stores *fakeStores) *dialog.Engine {
	t.Helper()
	eng := dialog.New(dialog.NewMemoryStore(time.Minute), dialog.Options{})

	wizard := NewEventWizard(stores, stores, stores, stores, stores, testTitler)
	wizard.now = func() time.Time {
		return time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC) // a Monday
	}

	for _, g := range []*dialog.Graph{
		wizard.Graph(),
		NewSongEdit(stores).Graph(),
		NewChordEntry(stores).Graph(),
		NewRoleRename(stores).Graph(),
	} {
		if err := eng.Register(g); err != nil {
			t.Fatalf("register %s: %v", g.Kind, err)
		}
	}
	return eng
}

func tap(t *testing.T, eng *dialog.Engine, f dialog.Family, arg string) dialog.Directive {
	t.Helper()
	d, err := eng.Handle(context.Background(), dialog.ButtonInbound(testOwner, dialog.NewToken(f, arg)))
	if err != nil {
		t.Fatalf("button %s %q: %v", f, arg, err)
	}
	return d
}

func typeText(t *testing.T, eng *dialog.Engine, text string) dialog.Directive {
	t.Helper()
	d, err := eng.Handle(context.Background(), dialog.TextInbound(testOwner, text))
	if err != nil {
		t.Fatalf("text %q: %v", text, err)
	}
	return d
}
