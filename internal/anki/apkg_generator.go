package anki

import (
	"archive/zip"
	"crypto/sha1"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const fieldSeparator = "\x1f"

// APKGGenerator creates Anki package files (.apkg)
type APKGGenerator struct {
	deckName   string
	deckID     int64
	modelID    int64
	cards      []Card
	mediaFiles map[string]int // exported file name to media number
}

// NewAPKGGenerator creates a new APKG generator
func NewAPKGGenerator(deckName string) *APKGGenerator {
	if deckName == "" {
		deckName = "PopLingo"
	}
	now := time.Now().UnixMilli()
	return &APKGGenerator{
		deckName:   deckName,
		deckID:     now,
		modelID:    now + 1,
		cards:      make([]Card, 0),
		mediaFiles: make(map[string]int),
	}
}

// AddCard adds a card to the generator
func (g *APKGGenerator) AddCard(card Card) {
	g.cards = append(g.cards, card)
}

// GenerateAPKG writes the package to outputPath.
func (g *APKGGenerator) GenerateAPKG(outputPath string) error {
	tempDir, err := os.MkdirTemp("", "poplingo_apkg_*")
	if err != nil {
		return fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// media numbering must exist before notes reference it
	if err := g.writeMedia(tempDir); err != nil {
		return fmt.Errorf("failed to write media files: %w", err)
	}
	if err := g.writeMediaMapping(tempDir); err != nil {
		return fmt.Errorf("failed to create media mapping: %w", err)
	}
	if err := g.createDatabase(filepath.Join(tempDir, "collection.anki2")); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	if err := zipDirectory(tempDir, outputPath); err != nil {
		return fmt.Errorf("failed to create zip package: %w", err)
	}
	return nil
}

func (g *APKGGenerator) writeMedia(dir string) error {
	next := 0
	for _, card := range g.cards {
		name := card.MediaName()
		if name == "" {
			continue
		}
		if _, ok := g.mediaFiles[name]; ok {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, strconv.Itoa(next)), card.ImageData, 0644); err != nil {
			return fmt.Errorf("image for %q: %w", card.Term, err)
		}
		g.mediaFiles[name] = next
		next++
	}
	return nil
}

func (g *APKGGenerator) writeMediaMapping(dir string) error {
	mapping := make(map[string]string, len(g.mediaFiles))
	for name, num := range g.mediaFiles {
		mapping[strconv.Itoa(num)] = name
	}
	data, err := json.Marshal(mapping)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "media"), data, 0644)
}

func (g *APKGGenerator) createDatabase(dbPath string) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}
	if err := g.insertCollection(db); err != nil {
		return fmt.Errorf("failed to insert collection: %w", err)
	}
	if err := g.insertNotesAndCards(db); err != nil {
		return fmt.Errorf("failed to insert notes and cards: %w", err)
	}
	return nil
}

var schema = []string{
	`CREATE TABLE col (
		id integer PRIMARY KEY, crt integer NOT NULL, mod integer NOT NULL,
		scm integer NOT NULL, ver integer NOT NULL, dty integer NOT NULL,
		usn integer NOT NULL, ls integer NOT NULL, conf text NOT NULL,
		models text NOT NULL, decks text NOT NULL, dconf text NOT NULL,
		tags text NOT NULL
	)`,
	`CREATE TABLE notes (
		id integer PRIMARY KEY, guid text NOT NULL, mid integer NOT NULL,
		mod integer NOT NULL, usn integer NOT NULL, tags text NOT NULL,
		flds text NOT NULL, sfld text NOT NULL, csum integer NOT NULL,
		flags integer NOT NULL, data text NOT NULL
	)`,
	`CREATE TABLE cards (
		id integer PRIMARY KEY, nid integer NOT NULL, did integer NOT NULL,
		ord integer NOT NULL, mod integer NOT NULL, usn integer NOT NULL,
		type integer NOT NULL, queue integer NOT NULL, due integer NOT NULL,
		ivl integer NOT NULL, factor integer NOT NULL, reps integer NOT NULL,
		lapses integer NOT NULL, left integer NOT NULL, odue integer NOT NULL,
		odid integer NOT NULL, flags integer NOT NULL, data text NOT NULL
	)`,
	`CREATE TABLE revlog (
		id integer PRIMARY KEY, cid integer NOT NULL, usn integer NOT NULL,
		ease integer NOT NULL, ivl integer NOT NULL, lastIvl integer NOT NULL,
		factor integer NOT NULL, time integer NOT NULL, type integer NOT NULL
	)`,
	`CREATE TABLE graves (usn integer NOT NULL, oid integer NOT NULL, type integer NOT NULL)`,
	`CREATE INDEX ix_notes_csum ON notes (csum)`,
	`CREATE INDEX ix_notes_usn ON notes (usn)`,
	`CREATE INDEX ix_cards_usn ON cards (usn)`,
	`CREATE INDEX ix_cards_nid ON cards (nid)`,
	`CREATE INDEX ix_cards_sched ON cards (did, queue, due)`,
	`CREATE INDEX ix_revlog_usn ON revlog (usn)`,
	`CREATE INDEX ix_revlog_cid ON revlog (cid)`,
}

type jsonObject = map[string]any

func deckConfig(id int64, name, desc string, now int64) jsonObject {
	return jsonObject{
		"id":               id,
		"name":             name,
		"mod":              now,
		"desc":             desc,
		"collapsed":        false,
		"dyn":              0,
		"conf":             1,
		"usn":              0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
		"browserCollapsed": false,
		"extendNew":        10,
		"extendRev":        50,
	}
}

func (g *APKGGenerator) insertCollection(db *sql.DB) error {
	now := time.Now().Unix()

	decks := jsonObject{
		"1": deckConfig(1, "Default", "", now),
		strconv.FormatInt(g.deckID, 10): deckConfig(g.deckID, g.deckName,
			"Vocabulary collected with PopLingo", now),
	}
	models := jsonObject{strconv.FormatInt(g.modelID, 10): g.noteType(now)}
	conf := jsonObject{
		"nextPos":       1,
		"estTimes":      true,
		"activeDecks":   []int64{1},
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"curDeck":       1,
		"newSpread":     0,
		"dueCounts":     true,
		"collapseTime":  1200,
		"timeLim":       0,
		"schedVer":      1,
		"curModel":      strconv.FormatInt(g.modelID, 10),
		"dayLearnFirst": false,
	}
	dconf := jsonObject{
		"1": jsonObject{
			"id":   1,
			"name": "Default",
			"dyn":  0,
			"new": jsonObject{
				"delays": []int{1, 10}, "ints": []int{1, 4, 7}, "initialFactor": 2500,
				"perDay": 20, "order": 1, "bury": true, "separate": true,
			},
			"lapse": jsonObject{
				"delays": []int{10}, "mult": 0, "minInt": 1, "leechFails": 8, "leechAction": 0,
			},
			"rev": jsonObject{
				"perDay": 100, "ease4": 1.3, "fuzz": 0.05, "maxIvl": 36500,
				"ivlFct": 1, "bury": true, "minSpace": 1,
			},
			"timer":    0,
			"maxTaken": 60,
			"usn":      0,
			"mod":      now,
			"autoplay": true,
			"replayq":  true,
		},
	}

	var encoded [4][]byte
	for i, v := range []any{conf, models, decks, dconf} {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		encoded[i] = b
	}

	_, err := db.Exec(`INSERT INTO col VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		1, now, now*1000, now*1000, 11, 0, 0, 0,
		string(encoded[0]), string(encoded[1]), string(encoded[2]), string(encoded[3]),
		"{}",
	)
	return err
}

var noteFields = []string{"Term", "Definition", "Examples", "Usage", "Image"}

func (g *APKGGenerator) noteType(now int64) jsonObject {
	flds := make([]jsonObject, len(noteFields))
	for i, name := range noteFields {
		size := 20
		if name == "Examples" || name == "Usage" {
			size = 16
		}
		flds[i] = jsonObject{
			"name": name, "ord": i, "sticky": false, "rtl": false,
			"font": "Arial", "size": size, "media": []string{},
		}
	}

	return jsonObject{
		"id":    g.modelID,
		"name":  "PopLingo Vocabulary (Basic + Reverse)",
		"type":  0,
		"mod":   now,
		"usn":   -1,
		"sortf": 0,
		"did":   g.deckID,
		// forward needs Term, reverse needs Definition
		"req":  []any{[]any{0, "all", []int{0}}, []any{1, "all", []int{1}}},
		"vers": []int{},
		"tags": []string{},
		"latexPre": `\documentclass[12pt]{article}
\special{papersize=3in,5in}
\usepackage[utf8]{inputenc}
\usepackage{amssymb,amsmath}
\pagestyle{empty}
\setlength{\parindent}{0in}
\begin{document}`,
		"latexPost": `\end{document}`,
		"flds":      flds,
		"tmpls": []jsonObject{
			{"name": "Recognize", "ord": 0, "qfmt": termFront, "afmt": termBack, "did": nil, "bqfmt": "", "bafmt": ""},
			{"name": "Recall", "ord": 1, "qfmt": definitionFront, "afmt": definitionBack, "did": nil, "bqfmt": "", "bafmt": ""},
		},
		"css": cardCSS,
	}
}

const termFront = `<div class="front">
<div class="term">{{Term}}</div>
</div>`

const termBack = `{{FrontSide}}

<hr id="answer">

<div class="back">
{{#Image}}<div class="image-container">{{Image}}</div>{{/Image}}
<div class="definition">{{Definition}}</div>
{{#Examples}}<div class="examples">{{Examples}}</div>{{/Examples}}
{{#Usage}}<div class="usage">{{Usage}}</div>{{/Usage}}
</div>`

const definitionFront = `<div class="front">
{{#Image}}<div class="image-container">{{Image}}</div>{{/Image}}
<div class="definition">{{Definition}}</div>
</div>`

const definitionBack = `{{FrontSide}}

<hr id="answer">

<div class="back">
<div class="term">{{Term}}</div>
{{#Examples}}<div class="examples">{{Examples}}</div>{{/Examples}}
</div>`

const cardCSS = `.card {
  font-family: Arial, sans-serif;
  font-size: 20px;
  text-align: center;
  color: #333;
  background-color: #fffdf7;
}

.front, .back { padding: 20px; }

.image-container { margin: 20px auto; max-width: 400px; }
.image-container img { max-width: 100%; height: auto; border-radius: 12px; }

.term { font-size: 34px; font-weight: bold; color: #6c3ce0; margin: 20px 0; }
.definition { font-size: 22px; margin: 16px 0; }
.examples { font-size: 16px; text-align: left; margin: 12px auto; max-width: 480px; }
.usage { font-size: 15px; color: #7f8c8d; font-style: italic; margin-top: 16px; }

hr#answer { margin: 30px 0; border: 0; border-top: 1px solid #ecf0f1; }`

func (g *APKGGenerator) insertNotesAndCards(db *sql.DB) error {
	now := time.Now()
	const cardQuery = `INSERT INTO cards VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	for i, card := range g.cards {
		// leave room for two cards per note
		noteID := now.UnixMilli() + int64(i*3)

		imageField := ""
		if name := card.MediaName(); name != "" {
			if _, ok := g.mediaFiles[name]; ok {
				imageField = fmt.Sprintf(`<img src="%s">`, name)
			}
		}

		fields := strings.Join([]string{
			card.Term,
			card.Definition,
			card.ExamplesHTML(),
			card.UsageNote,
			imageField,
		}, fieldSeparator)

		guid := card.ID
		if guid == "" {
			guid = fmt.Sprintf("pl_%d_%s", now.Unix(), card.Term)
		}

		tags := strings.TrimSpace(strings.Join([]string{card.TargetLang, card.NativeLang}, " "))
		if tags != "" {
			tags = " " + tags + " "
		}

		_, err := db.Exec(`INSERT INTO notes VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			noteID, guid, g.modelID, now.Unix(), -1, tags,
			fields, card.Term, checksum(card.Term), 0, "",
		)
		if err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}

		for ord := 0; ord < 2; ord++ {
			cardID := noteID + 1 + int64(ord)
			// new cards: due is the queue position
			_, err = db.Exec(cardQuery,
				cardID, noteID, g.deckID, ord, now.Unix(), -1,
				0, 0, noteID+int64(ord),
				0, 0, 0, 0, 0, 0, 0, 0, "",
			)
			if err != nil {
				return fmt.Errorf("failed to insert card %d: %w", ord, err)
			}
		}
	}
	return nil
}

// checksum is Anki's duplicate check: first 8 hex digits of sha1(sort field).
func checksum(s string) int64 {
	sum := sha1.Sum([]byte(s))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

func zipDirectory(dir, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return err
		}
		w, err := zw.Create(e.Name())
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return zw.Close()
}
