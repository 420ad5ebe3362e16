package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/planbot/internal/dialog"
	"github.com/m3rciful/planbot/internal/domain"
)

// KindFieldRename is the role renaming dialog.
const KindFieldRename dialog.Kind = "field-rename"

// Role rename steps.
const (
	StepRenameName dialog.Step = "name"
	StepRenameDone dialog.Step = "confirm"
)

const maxRoleName = 64

// RenameDraft carries a role rename in progress. RoleID and OldName are
// seeded when the dialog starts from the role picker.
type RenameDraft struct {
	RoleID  int64  `json:"role_id"`
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// DialogKind implements dialog.Payload.
func (*RenameDraft) DialogKind() dialog.Kind { return KindFieldRename }

// RoleRename builds the role renaming graph.
type RoleRename struct {
	roles domain.RoleStore
}

// NewRoleRename wires the flow's dependencies.
func NewRoleRename(roles domain.RoleStore) *RoleRename {
	return &RoleRename{roles: roles}
}

// Graph returns the flow's static step table.
func (f *RoleRename) Graph() *dialog.Graph {
	return &dialog.Graph{
		Kind:  KindFieldRename,
		Start: StepRenameName,
		Steps: map[dialog.Step]dialog.StepSpec{
			StepRenameName: {
				Modality: dialog.ModText,
				Prompt:   f.promptName,
				Handler:  f.handleName,
			},
			StepRenameDone: {
				Modality: dialog.ModButton,
				Accepts:  []dialog.Family{dialog.FamConfirm, dialog.FamEdit},
				Prompt:   f.promptConfirm,
				Handler:  f.handleConfirm,
				Prev:     StepRenameName,
			},
		},
		NewPayload: func() dialog.Payload { return &RenameDraft{} },
	}
}

func (f *RoleRename) promptName(_ context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*RenameDraft)
	return dialog.Msg("rename.type_name", draft.OldName), nil
}

func (f *RoleRename) handleName(_ context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	name := strings.TrimSpace(in.Text)
	if name == "" {
		return dialog.Stay(dialog.Msg("rename.name_empty")), nil
	}
	if len([]rune(name)) > maxRoleName {
		return dialog.Stay(dialog.Msg("rename.name_too_long", maxRoleName)), nil
	}
	s.Payload.(*RenameDraft).NewName = name
	return dialog.Goto(StepRenameDone), nil
}

func (f *RoleRename) promptConfirm(_ context.Context, s *dialog.Session) (dialog.Directive, error) {
	draft := s.Payload.(*RenameDraft)
	d := dialog.Msg("rename.confirm", draft.OldName, draft.NewName)
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

func (f *RoleRename) handleConfirm(ctx context.Context, s *dialog.Session, in dialog.Inbound) (dialog.Result, error) {
	draft := s.Payload.(*RenameDraft)

	if in.Token.Family == dialog.FamEdit {
		keepID, keepOld := draft.RoleID, draft.OldName
		*draft = RenameDraft{RoleID: keepID, OldName: keepOld}
		return dialog.Goto(StepRenameName), nil
	}

	err := f.roles.RenameRole(ctx, draft.RoleID, draft.NewName)
	if errors.Is(err, domain.ErrNotFound) {
		return dialog.Terminate(dialog.Msg("rename.role_gone")), nil
	}
	if err != nil {
		return dialog.Stay(dialog.Msg("rename.commit_failed")), nil
	}
	return dialog.Terminate(dialog.Msg("rename.saved", draft.NewName)), nil
}
