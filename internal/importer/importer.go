package importer

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DataURLPrefix is the only accepted data url encoding.
const DataURLPrefix = "data:text/csv;base64,"

const (
	maxTitleLength       = 100
	maxDescriptionLength = 2000
)

// ErrNotDataURL indicates the payload is not a base64 text/csv data url.
var ErrNotDataURL = errors.New("data must be a base64 text/csv data url")

// Story is one parsed row. Title already carries the issue key prefix and is
// truncated to the story title limit; Description is truncated likewise.
// Consensus is set when the sheet carries a pre-agreed estimate.
type Story struct {
	Key         string
	Title       string
	Description string
	Consensus   *float64
}

// ColumnMapping lists the accepted header names per story field, compared
// case-insensitively. Rows are matched positionally against the header row.
type ColumnMapping struct {
	Key         []string
	Title       []string
	Description []string
	Consensus   []string
}

// DefaultColumnMapping matches the headers common issue trackers export.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Key:         []string{"issue", "issue key", "key"},
		Title:       []string{"title", "summary"},
		Description: []string{"descr", "description"},
		Consensus:   []string{"consensus"},
	}
}

// Parser parses story batches with a fixed column mapping.
type Parser struct {
	mapping ColumnMapping
}

// NewParser creates a parser. A zero mapping falls back to the default.
func NewParser(mapping ColumnMapping) *Parser {
	if len(mapping.Title) == 0 {
		mapping = DefaultColumnMapping()
	}
	return &Parser{mapping: mapping}
}

// Parse decodes a data url and parses its CSV document into stories. Rows
// without a title are skipped; an empty result with a nil error means the
// document was valid but held no usable stories.
func (p *Parser) Parse(dataURL string) ([]Story, error) {
	if !strings.HasPrefix(dataURL, DataURLPrefix) {
		return nil, ErrNotDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, DataURLPrefix))
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, nil
	}
	columns := p.resolveColumns(records[0])
	if columns.title < 0 {
		return nil, nil
	}
	var stories []Story
	for _, record := range records[1:] {
		story, ok := buildStory(record, columns)
		if !ok {
			continue
		}
		stories = append(stories, story)
	}
	return stories, nil
}

type columnIndexes struct {
	key         int
	title       int
	description int
	consensus   int
}

func (p *Parser) resolveColumns(header []string) columnIndexes {
	columns := columnIndexes{key: -1, title: -1, description: -1, consensus: -1}
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		switch {
		case columns.key < 0 && contains(p.mapping.Key, name):
			columns.key = i
		case columns.title < 0 && contains(p.mapping.Title, name):
			columns.title = i
		case columns.description < 0 && contains(p.mapping.Description, name):
			columns.description = i
		case columns.consensus < 0 && contains(p.mapping.Consensus, name):
			columns.consensus = i
		}
	}
	return columns
}

func buildStory(record []string, columns columnIndexes) (Story, bool) {
	title := strings.TrimSpace(field(record, columns.title))
	if title == "" {
		return Story{}, false
	}
	story := Story{
		Key:         strings.TrimSpace(field(record, columns.key)),
		Description: Truncate(strings.TrimSpace(field(record, columns.description)), maxDescriptionLength),
	}
	if story.Key != "" {
		title = story.Key + " " + title
	}
	story.Title = Truncate(title, maxTitleLength)
	if raw := strings.TrimSpace(field(record, columns.consensus)); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil {
			story.Consensus = &value
		}
	}
	return story, true
}

func field(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return record[index]
}

// Truncate cuts a string to at most limit runes. Truncation is idempotent; a
// string at or below the limit is returned unchanged.
func Truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}

func contains(names []string, name string) bool {
	for _, candidate := range names {
		if candidate == name {
			return true
		}
	}
	return false
}
