package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/planbot/internal/dialog"
	"github.com/m3rciful/planbot/internal/domain"
)

// KindChordEntry is the chord sheet entry dialog.
const KindChordEntry dialog.Kind = "chord-entry"

// Chord entry steps.
const (
	StepChordsText dialog.Step = "chords"
	StepChordsDone dialog.Step = "confirm"
)

const maxChordSheet = 4000

// ChordDraft carries a chord sheet being entered for one song.
type ChordDraft struct {
	SongID    int64  `json:"song_id"`
	SongTitle string `json:"song_title"`
	Chords    string `json:"chords"`
}

// DialogKind implements dialog.Payload.
func (*ChordDraft) DialogKind() dialog.Kind { return KindChordEntry }

// ChordEntry builds the chord sheet entry graph.
type ChordEntry struct {
	songs domain.SongStore
}

// NewChordEntry wires the flow's dependencies.
func NewChordEntry(songs domain.SongStore) *ChordEntry {
	return &ChordEntry{songs: songs}
}

// Graph returns the flow's static step table.
func (f *ChordEntry) Graph() *dialog.Graph {
	return &dialog.Graph{
		Kind:  KindChordEntry,
		Start: StepChordsText,
		Steps: map[dialog.Step]dialog.StepSpec{
			StepChordsText: {
				Modality: dialog.ModText,
				Prompt:   f.promptChords,
				Handler:  f.handleChords,
			},
			StepChordsDone: {
				Modality: dialog.ModButton,
				Accepts:  []dialog.Family{dialog.FamConfirm, dialog.FamEdit},
				Prompt:   f.promptConfirm,
				Handler:  f.handleConfirm,
				Prev:     StepChordsText,
			},
		},
		NewPayload: func() dialog.Payload { return &ChordDraft{} },
	}
}

func (f *ChordEntry) promptChords(_ context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*ChordDraft)
	return dialog.Msg("chords.type_sheet", draft.SongTitle), nil
}

func (f *ChordEntry) handleChords(_ context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	sheet := strings.TrimSpace(in.Text)
	if sheet == "" {
		return dialog.Stay(dialog.Msg("chords.sheet_empty")), nil
	}
	if len(sheet) > maxChordSheet {
		return dialog.Stay(dialog.Msg("chords.sheet_too_long", maxChordSheet)), nil
	}
	s.Payload.(*ChordDraft).Chords = sheet
	return dialog.Goto(StepChordsDone), nil
}

func (f *ChordEntry) promptConfirm(_ context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*ChordDraft)
	d := dialog.Msg("chords.confirm", draft.SongTitle, len(draft.Chords))
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

func (f *ChordEntry) handleConfirm(ctx context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	draft := s.Payload.(*ChordDraft)

	if in.Token.Family == dialog.FamEdit {
		keepID, keepTitle := draft.SongID, draft.SongTitle
		*draft = ChordDraft{SongID: keepID, SongTitle: keepTitle}
		return dialog.Goto(StepChordsText), nil
	}

	err := f.songs.SetChords(ctx, draft.SongID, draft.Chords)
	if errors.Is(err, domain.ErrNotFound) {
		return dialog.Terminate(dialog.Msg("chords.song_gone")), nil
	}
	if err != nil {
		return dialog.Stay(dialog.Msg("chords.commit_failed")), nil
	}
	return dialog.Terminate(dialog.Msg("chords.saved", draft.SongTitle)), nil
}
