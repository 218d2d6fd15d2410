package anki

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewAPKGGenerator(t *testing.T) {
	gen := NewAPKGGenerator("Test Deck")
	if gen.deckName != "Test Deck" {
		t.Errorf("Expected deck name 'Test Deck', got '%s'", gen.deckName)
	}
	if len(gen.cards) != 0 || len(gen.mediaFiles) != 0 {
		t.Error("Expected a fresh generator to be empty")
	}
	if gen.modelID == gen.deckID {
		t.Error("model and deck ids must differ")
	}

	if NewAPKGGenerator("").deckName != "PopLingo" {
		t.Error("empty deck name should fall back to PopLingo")
	}
}

func TestChecksum(t *testing.T) {
	if got := checksum("gato"); got <= 0 {
		t.Errorf("checksum should be positive, got %d", got)
	}
	if checksum("gato") != checksum("gato") {
		t.Error("checksum not stable")
	}
	if checksum("gato") == checksum("perro") {
		t.Error("different terms should not collide here")
	}
}

func readZip(t *testing.T, path string) map[string][]byte {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("Failed to open apkg: %v", err)
	}
	defer r.Close()

	files := make(map[string][]byte)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f.Name, err)
		}
		files[f.Name] = data
	}
	return files
}

func TestGenerateAPKG(t *testing.T) {
	tempDir := t.TempDir()
	outputPath := filepath.Join(tempDir, "deck.apkg")

	gen := NewGenerator(nil)
	gen.AddCard(CardFromEntry(sampleEntry("id-1", "gato", pngBytes)))
	gen.AddCard(CardFromEntry(sampleEntry("id-2", "casa", nil)))

	if err := gen.GenerateAPKG(outputPath, "Spanish"); err != nil {
		t.Fatalf("GenerateAPKG failed: %v", err)
	}

	files := readZip(t, outputPath)
	for _, name := range []string{"collection.anki2", "media", "0"} {
		if _, ok := files[name]; !ok {
			t.Errorf("apkg missing %s", name)
		}
	}
	if string(files["0"]) != string(pngBytes) {
		t.Error("media file 0 should hold the image bytes")
	}

	var mapping map[string]string
	if err := json.Unmarshal(files["media"], &mapping); err != nil {
		t.Fatalf("media mapping is not JSON: %v", err)
	}
	if mapping["0"] != "poplingo_id-1.png" {
		t.Errorf("unexpected media mapping: %v", mapping)
	}

	dbPath := filepath.Join(tempDir, "collection.anki2")
	if err := os.WriteFile(dbPath, files["collection.anki2"], 0644); err != nil {
		t.Fatalf("Failed to extract collection: %v", err)
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("Failed to open collection: %v", err)
	}
	defer db.Close()

	var notes, cards int
	if err := db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&notes); err != nil {
		t.Fatalf("count notes: %v", err)
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM cards").Scan(&cards); err != nil {
		t.Fatalf("count cards: %v", err)
	}
	if notes != 2 || cards != 4 {
		t.Errorf("notes=%d cards=%d, want 2 and 4", notes, cards)
	}

	var flds, guid, tags string
	if err := db.QueryRow("SELECT flds, guid, tags FROM notes WHERE sfld = ?", "gato").Scan(&flds, &guid, &tags); err != nil {
		t.Fatalf("select note: %v", err)
	}
	fields := strings.Split(flds, fieldSeparator)
	if len(fields) != len(noteFields) {
		t.Fatalf("expected %d fields, got %d", len(noteFields), len(fields))
	}
	if fields[0] != "gato" || fields[4] != `<img src="poplingo_id-1.png">` {
		t.Errorf("unexpected fields: %q", fields)
	}
	if guid != "id-1" {
		t.Errorf("guid = %q, want entry id", guid)
	}
	if strings.TrimSpace(tags) != "es en" {
		t.Errorf("tags = %q", tags)
	}

	var decks string
	if err := db.QueryRow("SELECT decks FROM col").Scan(&decks); err != nil {
		t.Fatalf("select col: %v", err)
	}
	if !strings.Contains(decks, `"Spanish"`) {
		t.Errorf("deck name missing from collection: %s", decks)
	}
}

func TestGenerateAPKGBadPath(t *testing.T) {
	gen := NewAPKGGenerator("x")
	gen.AddCard(Card{Term: "a"})
	if err := gen.GenerateAPKG(filepath.Join(t.TempDir(), "no", "such", "deck.apkg")); err == nil {
		t.Error("expected error for unwritable output")
	}
}
