package document_test

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"ravenls/internal/document"
)

func TestStoreLifecycle(t *testing.T) {
	store := document.NewStore()

	doc := store.Open("file:///a.rv", "raven", "let x = 1;", 1)
	if doc.Version != 1 || doc.Text != "let x = 1;" {
		t.Fatalf("Unexpected document after open: %+v", doc)
	}

	got, ok := store.Get("file:///a.rv")
	if !ok || got.Text != doc.Text {
		t.Fatalf("Get returned %+v, %v", got, ok)
	}

	store.Close("file:///a.rv")
	if _, ok := store.Get("file:///a.rv"); ok {
		t.Error("Document should be gone after close")
	}
}

func TestApplyIncrementalChanges(t *testing.T) {
	store := document.NewStore()
	store.Open("file:///a.rv", "raven", "let x = 1;\nlet y = 2;\n", 1)

	doc, err := store.Apply("file:///a.rv", 2, []document.Change{
		{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: 8},
				End:   protocol.Position{Line: 0, Character: 9},
			},
			Text: "42",
		},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if doc.Text != "let x = 42;\nlet y = 2;\n" {
		t.Errorf("Unexpected text after edit: %q", doc.Text)
	}
	if doc.Version != 2 {
		t.Errorf("Expected version 2, got %d", doc.Version)
	}
}

func TestApplyMultipleChangesInOrder(t *testing.T) {
	store := document.NewStore()
	store.Open("file:///a.rv", "raven", "abc", 1)

	doc, err := store.Apply("file:///a.rv", 2, []document.Change{
		{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: 3},
				End:   protocol.Position{Line: 0, Character: 3},
			},
			Text: "d",
		},
		{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: 0},
				End:   protocol.Position{Line: 0, Character: 1},
			},
			Text: "",
		},
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if doc.Text != "bcd" {
		t.Errorf("Expected \"bcd\", got %q", doc.Text)
	}
}

func TestApplyFullReplacement(t *testing.T) {
	store := document.NewStore()
	store.Open("file:///a.rv", "raven", "old", 1)

	doc, err := store.Apply("file:///a.rv", 2, []document.Change{{Text: "brand new"}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if doc.Text != "brand new" {
		t.Errorf("Expected full replacement, got %q", doc.Text)
	}
}

func TestApplyUnknownDocument(t *testing.T) {
	store := document.NewStore()
	if _, err := store.Apply("file:///missing.rv", 1, nil); err == nil {
		t.Error("Expected error for unknown document")
	}
}

func TestAllReturnsSortedSnapshots(t *testing.T) {
	store := document.NewStore()
	if docs := store.All(); len(docs) != 0 {
		t.Fatalf("Empty store should list nothing, got %+v", docs)
	}

	store.Open("file:///b.rv", "raven", "two", 1)
	store.Open("file:///a.rv", "raven", "one", 1)

	docs := store.All()
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if docs[0].URI != "file:///a.rv" || docs[1].URI != "file:///b.rv" {
		t.Errorf("Documents not sorted by URI: %+v", docs)
	}

	if _, err := store.Apply("file:///a.rv", 2, []document.Change{{Text: "changed"}}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if docs[0].Text != "one" {
		t.Errorf("Listed snapshot mutated by later edit: %+v", docs[0])
	}
}

func TestSnapshotIsolation(t *testing.T) {
	store := document.NewStore()
	store.Open("file:///a.rv", "raven", "one", 1)

	before, _ := store.Get("file:///a.rv")
	if _, err := store.Apply("file:///a.rv", 2, []document.Change{{Text: "two"}}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if before.Text != "one" || before.Version != 1 {
		t.Errorf("Snapshot mutated by later edit: %+v", before)
	}
	if version, _ := store.Version("file:///a.rv"); version != 2 {
		t.Errorf("Expected current version 2, got %d", version)
	}
}
