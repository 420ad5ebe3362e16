package flows

import (
	"context"
	"strings"
	"testing"

	"github.com/m3rciful/planbot/internal/dialog"
)

func startChords(t *testing.T, eng *dialog.Engine) dialog.Directive {
	t.Helper()
	d, err := eng.Start(context.Background(), testOwner, KindChordEntry, func(p dialog.Payload) {
		draft := p.(*ChordDraft)
		draft.SongID = 7
		draft.SongTitle = "How Great"
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return d
}

func TestChordEntryHappyPath(t *testing.T) {
	stores := newFakeStores()
	eng := newFlowEngine(t, stores)

	d := startChords(t, eng)
	if d.Key != "chords.type_sheet" || d.Args[0] != "How Great" {
		t.Fatalf("sheet prompt: %+v", d)
	}

	sheet := "G D Em C\nG D C"
	d = typeText(t, eng, sheet)
	if d.Key != "chords.confirm" {
		t.Fatalf("confirm prompt: %+v", d)
	}

	d = tap(t, eng, dialog.FamConfirm, "")
	if d.Key != "chords.saved" {
		t.Fatalf("expected saved ack, got %+v", d)
	}
	if stores.songs[7].Chords != sheet {
		t.Fatalf("chords not written: %q", stores.songs[7].Chords)
	}
}

func TestChordEntryValidation(t *testing.T) {
	eng := newFlowEngine(t, newFakeStores())
	startChords(t, eng)

	d := typeText(t, eng, "   ")
	if d.Key != "chords.sheet_empty" {
		t.Fatalf("blank sheet should be rejected, got %+v", d)
	}

	d = typeText(t, eng, strings.Repeat("G ", 2500))
	if d.Key != "chords.sheet_too_long" {
		t.Fatalf("oversized sheet should be rejected, got %+v", d)
	}

	d = typeText(t, eng, "G D Em C")
	if d.Key != "chords.confirm" {
		t.Fatalf("valid sheet should advance, got %+v", d)
	}
}

func TestChordEntryBackRestoresEntry(t *testing.T) {
	eng := newFlowEngine(t, newFakeStores())
	startChords(t, eng)
	typeText(t, eng, "G D Em C")

	d := tap(t, eng, dialog.FamBack, "")
	if d.Key != "chords.type_sheet" {
		t.Fatalf("back should land on the sheet step, got %+v", d)
	}

	d = typeText(t, eng, "A E F#m D")
	if d.Key != "chords.confirm" || d.Args[1] != len("A E F#m D") {
		t.Fatalf("re-entered sheet should win: %+v", d)
	}
}

func TestChordEntrySongGone(t *testing.T) {
	stores := newFakeStores()
	eng := newFlowEngine(t, stores)
	startChords(t, eng)
	typeText(t, eng, "G D Em C")

	delete(stores.songs, 7)
	d := tap(t, eng, dialog.FamConfirm, "")
	if d.Key != "chords.song_gone" {
		t.Fatalf("expected gone message, got %+v", d)
	}
}
