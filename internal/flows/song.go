package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/m3rciful/planbot/internal/dialog"
	"github.com/m3rciful/planbot/internal/domain"
)

// KindSongEdit is the song field editing dialog.
const KindSongEdit dialog.Kind = "song-edit"

// Song edit steps.
const (
	StepSongField dialog.Step = "field"
	StepSongValue dialog.Step = "value"
	StepSongDone  dialog.Step = "confirm"
)

// FamField selects which song attribute to edit.
const FamField dialog.Family = "song_field"

// SongEditDraft carries the edit in progress. SongID and SongTitle are
// seeded when the dialog starts from the song picker.
type SongEditDraft struct {
	SongID    int64  `json:"song_id"`
	SongTitle string `json:"song_title"`
	Field     string `json:"field"`
	Value     string `json:"value"`
}

// DialogKind implements dialog.Payload.
func (*SongEditDraft) DialogKind() dialog.Kind { return KindSongEdit }

// SongEdit builds the song editing graph.
type SongEdit struct {
	songs domain.SongStore
}

// NewSongEdit wires the flow's dependencies.
func NewSongEdit(songs domain.SongStore) *SongEdit {
	return &SongEdit{songs: songs}
}

// Graph returns the flow's static step table.
func (f *SongEdit) Graph() *dialog.Graph {
	return &dialog.Graph{
		Kind:  KindSongEdit,
		Start: StepSongField,
		Steps: map[dialog.Step]dialog.StepSpec{
			StepSongField: {
				Modality: dialog.ModButton,
				Accepts:  []dialog.Family{FamField},
				Prompt:   f.promptField,
				Handler:  f.handleField,
			},
			StepSongValue: {
				Modality: dialog.ModText,
				Prompt:   f.promptValue,
				Handler:  f.handleValue,
				Prev:     StepSongField,
			},
			StepSongDone: {
				Modality: dialog.ModButton,
				Accepts:  []dialog.Family{dialog.FamConfirm, dialog.FamEdit},
				Prompt:   f.promptConfirm,
				Handler:  f.handleConfirm,
				Prev:     StepSongValue,
			},
		},
		NewPayload: func() dialog.Payload { return &SongEditDraft{} },
	}
}

func (f *SongEdit) promptField(_ context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*SongEditDraft)
	fields := []domain.SongField{domain.FieldTitle, domain.FieldAuthor, domain.FieldKey, domain.FieldTempo}

	var row []dialog.Button
	for _, field := range fields {
		row = append(row, dialog.KeyBtn("song.field."+string(field), dialog.NewToken(FamField, string(field))))
	}
	d := dialog.Msg("songedit.pick_field", draft.SongTitle)
	d.Rows = [][]dialog.Button{row[:2], row[2:]}
	return d, nil
}

func (f *SongEdit) handleField(_ context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	field := domain.SongField(in.Token.Arg)
	if !field.Valid() {
		return dialog.Stay(dialog.Toast("dialog.not_understood")), nil
	}
	draft := s.Payload.(*SongEditDraft)
	draft.Field = string(field)
	draft.Value = ""
	return dialog.Goto(StepSongValue), nil
}

func (f *SongEdit) promptValue(_ context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*SongEditDraft)
	return dialog.Msg("songedit.type_value", dialog.KeyArg("song.field."+draft.Field)), nil
}

func (f *SongEdit) handleValue(_ context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	draft := s.Payload.(*SongEditDraft)
	value := strings.TrimSpace(in.Text)
	if value == "" {
		return dialog.Stay(dialog.Msg("songedit.value_empty")), nil
	}
	if domain.SongField(draft.Field) == domain.FieldTempo {
		bpm, err := strconv.Atoi(value)
		if err != nil || bpm < 20 || bpm > 300 {
			return dialog.Stay(dialog.Msg("songedit.tempo_invalid")), nil
		}
	}
	draft.Value = value
	return dialog.Goto(StepSongDone), nil
}

func (f *SongEdit) promptConfirm(_ context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*SongEditDraft)
	d := dialog.Msg("songedit.confirm",
		draft.SongTitle, dialog.KeyArg("song.field."+draft.Field), draft.Value)
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

func (f *SongEdit) handleConfirm(ctx context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	draft := s.Payload.(*SongEditDraft)

	if in.Token.Family == dialog.FamEdit {
		keepID, keepTitle := draft.SongID, draft.SongTitle
		*draft = SongEditDraft{SongID: keepID, SongTitle: keepTitle}
		return dialog.Goto(StepSongField), nil
	}

	err := f.songs.UpdateSongField(ctx, draft.SongID, domain.SongField(draft.Field), draft.Value)
	if errors.Is(err, domain.ErrNotFound) {
		// The song vanished under us; retrying cannot succeed.
		return dialog.Terminate(dialog.Msg("songedit.song_gone")), nil
	}
	if err != nil {
		return dialog.Stay(dialog.Msg("songedit.commit_failed")), nil
	}
	return dialog.Terminate(dialog.Msg("songedit.saved", draft.SongTitle)), nil
}
