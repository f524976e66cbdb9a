// Package extraction turns raw OCR text into ticket candidates.
//
// Recognized text is walked line by line. A line carrying a ticket
// identifier opens a new candidate; the lines after it, up to the next
// identifier, only fill fields that still hold their defaults. Output is
// filtered so that every candidate has an identifier and a usable title.
package extraction

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/safe2go/support-import/internal/domain"
)

// ErrInvalidArgument reports input that is not decoded text.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	maxTitleLen       = 200
	maxDescriptionLen = 500
	minTitleLen       = 5
	// Continuation lines must be longer than this to be considered, and a
	// title shorter than this may still be replaced by one.
	continuationLen = 10
)

var surnameWord = regexp.MustCompile(`^[ \t]+(\p{Lu}\p{Ll}+)`)

// Candidate is a ticket recognized in text, ready to be checked against the
// store and submitted.
type Candidate struct {
	ExternalID  string                `json:"external_id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Responsible string                `json:"responsible"`
	Insurer     *string               `json:"insurer"`
	Category    *string               `json:"category"`
	Priority    domain.TicketPriority `json:"priority"`
}

// Ticket converts the candidate into a ticket for the store.
func (c Candidate) Ticket() *domain.Ticket {
	return &domain.Ticket{
		ExternalID:  c.ExternalID,
		Title:       c.Title,
		Description: c.Description,
		Status:      c.Status,
		Priority:    c.Priority,
		Responsible: c.Responsible,
		Insurer:     c.Insurer,
		Category:    c.Category,
	}
}

// Extractor applies a set of Rules. It holds no per-call state and is safe
// for concurrent use.
type Extractor struct {
	rules *Rules
}

// New builds an Extractor. A nil rules value selects DefaultRules.
func New(rules *Rules) *Extractor {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules}
}

// Rules returns the tables in use.
func (e *Extractor) Rules() *Rules {
	return e.rules
}

// ExtractFrom reads all of r and extracts candidates from it. It fails with
// ErrInvalidArgument when r is nil or does not hold UTF-8 text.
func (e *Extractor) ExtractFrom(r io.Reader, operatorName string) ([]Candidate, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil reader", ErrInvalidArgument)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: input is not UTF-8 text", ErrInvalidArgument)
	}
	return e.Extract(string(data), operatorName), nil
}

// Extract returns the valid candidates found in text, in the order their
// identifiers appear. operatorName is the fallback responsible person.
// Text without recognizable tickets yields an empty slice.
func (e *Extractor) Extract(text, operatorName string) []Candidate {
	cursor := newLineCursor(text)

	var (
		found []Candidate
		open  *Candidate
	)
	for {
		line, ok := cursor.next()
		if !ok {
			break
		}
		if start, end, matched := e.matchIdentifier(line); matched {
			if open != nil {
				found = append(found, *open)
			}
			open = e.openCandidate(line, start, end, cursor, operatorName)
			continue
		}
		if open != nil && runeLen(line) > continuationLen {
			e.accumulate(open, line)
		}
	}
	if open != nil {
		found = append(found, *open)
	}
	return e.finalize(found)
}

// matchIdentifier tries the identifier patterns in priority order and
// returns the byte range of the first match.
func (e *Extractor) matchIdentifier(line string) (int, int, bool) {
	for _, pattern := range e.rules.Identifiers {
		if loc := pattern.FindStringSubmatchIndex(line); loc != nil {
			return loc[2], loc[3], true
		}
	}
	return 0, 0, false
}

func (e *Extractor) openCandidate(line string, start, end int, cursor *lineCursor, operatorName string) *Candidate {
	title := cleanTitle(line[:start] + " " + line[end:])
	scanned := line
	if title == "" {
		if next, ok := cursor.peek(); ok {
			if _, _, isID := e.matchIdentifier(next); !isID {
				cursor.skip()
				title = cleanTitle(next)
				scanned = line + " " + next
			}
		}
	}
	if title == "" {
		title = e.rules.UntitledTitle
	}

	candidate := &Candidate{
		ExternalID:  canonicalID(line[start:end]),
		Title:       title,
		Description: e.rules.DefaultDescription,
		Status:      e.status(scanned, domain.TicketStatusPending),
		Responsible: e.responsible(scanned, operatorName),
		Priority:    domain.TicketPriorityMedium,
	}
	if org := e.organization(scanned); org != "" {
		insurer, category := org, org
		candidate.Insurer = &insurer
		candidate.Category = &category
	}
	return candidate
}

// accumulate lets a continuation line fill fields still at their defaults.
func (e *Extractor) accumulate(c *Candidate, line string) {
	if c.Title == e.rules.UntitledTitle || runeLen(c.Title) < continuationLen {
		c.Title = truncate(line, maxTitleLen)
	} else if c.Description == e.rules.DefaultDescription {
		c.Description = truncate(line, maxDescriptionLen)
	}
	if c.Status == domain.TicketStatusPending {
		c.Status = e.status(line, domain.TicketStatusPending)
	}
}

func (e *Extractor) status(line string, fallback domain.TicketStatus) domain.TicketStatus {
	folded := fold(line)
	for _, rule := range e.rules.Statuses {
		if rule.pattern.MatchString(folded) {
			return rule.Status
		}
	}
	return fallback
}

func (e *Extractor) responsible(line, operatorName string) string {
	if start, end, ok := findWord(e.rules.namePattern, line); ok {
		return strings.TrimSpace(line[start:end] + e.surnames(line[end:]))
	}
	if name := strings.TrimSpace(operatorName); name != "" {
		return name
	}
	return e.rules.Unassigned
}

// surnames returns the capitalised words that directly follow a first name.
// The run stops at a word of a status phrase, so "Lucas Valentim Em
// Atendimento" yields " Valentim".
func (e *Extractor) surnames(rest string) string {
	end := 0
	for {
		m := surnameWord.FindStringSubmatchIndex(rest[end:])
		if m == nil {
			break
		}
		if _, ok := e.rules.statusWords[fold(rest[end+m[2]:end+m[3]])]; ok {
			break
		}
		end += m[1]
	}
	return rest[:end]
}

func (e *Extractor) organization(line string) string {
	if start, end, ok := findWord(e.rules.orgPattern, line); ok {
		return strings.ToUpper(line[start:end])
	}
	return ""
}

func (e *Extractor) finalize(found []Candidate) []Candidate {
	valid := make([]Candidate, 0, len(found))
	for _, c := range found {
		if c.ExternalID == "" || c.Title == e.rules.UntitledTitle || runeLen(c.Title) < minTitleLen {
			continue
		}
		c.Title, c.Description = ClampText(c.Title, c.Description)
		valid = append(valid, c)
	}
	return valid
}

// ClampText cuts a title to 200 and a description to 500 characters, the
// widest values the ticket store accepts.
func ClampText(title, description string) (string, string) {
	return strings.TrimSpace(truncate(title, maxTitleLen)),
		strings.TrimSpace(truncate(description, maxDescriptionLen))
}
