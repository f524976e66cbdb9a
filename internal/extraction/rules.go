package extraction

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/safe2go/support-import/internal/domain"
)

const (
	defaultUntitled    = "Sem título"
	defaultDescription = "Importado via OCR da imagem"
	defaultUnassigned  = "Não atribuído"
)

// StatusRule maps a keyword phrase to the status it implies.
type StatusRule struct {
	Status  domain.TicketStatus
	Phrase  string
	pattern *regexp.Regexp
}

// Rules holds the keyword tables the extractor consults. A Rules value is
// read-only once compiled and may be shared between goroutines.
type Rules struct {
	Identifiers        []*regexp.Regexp
	Statuses           []StatusRule
	ResponsibleNames   []string
	Organizations      []string
	UntitledTitle      string
	DefaultDescription string
	Unassigned         string

	namePattern *regexp.Regexp
	orgPattern  *regexp.Regexp
	statusWords map[string]struct{}
}

// RulesFile is the YAML representation of Rules.
type RulesFile struct {
	ProjectKeys      []string          `yaml:"project_keys"`
	StatusKeywords   []StatusKeywords  `yaml:"status_keywords"`
	ResponsibleNames []string          `yaml:"responsible_names"`
	Organizations    []string          `yaml:"organizations"`
	Sentinels        SentinelsFileNode `yaml:"sentinels"`
}

// StatusKeywords lists the phrases that imply one status.
type StatusKeywords struct {
	Status  string   `yaml:"status"`
	Phrases []string `yaml:"phrases"`
}

// SentinelsFileNode overrides the placeholder values.
type SentinelsFileNode struct {
	Untitled    string `yaml:"untitled"`
	Description string `yaml:"description"`
	Unassigned  string `yaml:"unassigned"`
}

var projectKeyPattern = regexp.MustCompile(`^[A-Za-z]{3,5}$`)

// DefaultRulesFile returns the tables used by the Safe2Go support desk.
func DefaultRulesFile() RulesFile {
	return RulesFile{
		ProjectKeys: []string{"SGSS"},
		StatusKeywords: []StatusKeywords{
			{Status: string(domain.TicketStatusWaitingResponse), Phrases: []string{"aguardando suporte"}},
			{Status: string(domain.TicketStatusWaitingConfiguration), Phrases: []string{"aguardando configuração"}},
			{Status: string(domain.TicketStatusInDevelopment), Phrases: []string{"em atendimento"}},
			{Status: string(domain.TicketStatusCompleted), Phrases: []string{"concluído"}},
		},
		ResponsibleNames: []string{"Lucas", "Valentim", "Pedro", "João", "Maria"},
		Organizations:    []string{"AVLA", "ESSOR", "DAYCOVAL"},
	}
}

// DefaultRules compiles DefaultRulesFile.
func DefaultRules() *Rules {
	rules, err := DefaultRulesFile().Compile()
	if err != nil {
		panic(fmt.Sprintf("extraction: default rules: %v", err))
	}
	return rules
}

// LoadRules reads a YAML rules file. Sections left out of the file keep
// their default tables.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(data)
}

// ParseRules decodes YAML rules on top of the defaults.
func ParseRules(data []byte) (*Rules, error) {
	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	defaults := DefaultRulesFile()
	if len(file.ProjectKeys) == 0 {
		file.ProjectKeys = defaults.ProjectKeys
	}
	if len(file.StatusKeywords) == 0 {
		file.StatusKeywords = defaults.StatusKeywords
	}
	if len(file.ResponsibleNames) == 0 {
		file.ResponsibleNames = defaults.ResponsibleNames
	}
	if len(file.Organizations) == 0 {
		file.Organizations = defaults.Organizations
	}
	return file.Compile()
}

// Compile validates the tables and builds the matchers.
func (f RulesFile) Compile() (*Rules, error) {
	if len(f.ProjectKeys) == 0 {
		return nil, errors.New("at least one project key is required")
	}
	keys := make([]string, 0, len(f.ProjectKeys))
	for _, key := range f.ProjectKeys {
		key = strings.TrimSpace(key)
		if !projectKeyPattern.MatchString(key) {
			return nil, fmt.Errorf("project key %q must be 3 to 5 letters", key)
		}
		keys = append(keys, regexp.QuoteMeta(key))
	}

	rules := &Rules{
		Identifiers: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b((?:` + strings.Join(keys, "|") + `)[-\s]?N?\d+)\b`),
			regexp.MustCompile(`(?i)\b([A-Z]{2,5}[-\s]\d{3,6})\b`),
			regexp.MustCompile(`(?i)\b([A-Z]+\d+[-\s]\d+)\b`),
		},
		statusWords:        make(map[string]struct{}),
		UntitledTitle:      orDefault(f.Sentinels.Untitled, defaultUntitled),
		DefaultDescription: orDefault(f.Sentinels.Description, defaultDescription),
		Unassigned:         orDefault(f.Sentinels.Unassigned, defaultUnassigned),
	}

	for _, kw := range f.StatusKeywords {
		status := domain.TicketStatus(kw.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status %q", kw.Status)
		}
		for _, phrase := range kw.Phrases {
			pattern, err := phrasePattern(phrase)
			if err != nil {
				return nil, err
			}
			rules.Statuses = append(rules.Statuses, StatusRule{Status: status, Phrase: phrase, pattern: pattern})
			for _, w := range strings.Fields(fold(phrase)) {
				rules.statusWords[w] = struct{}{}
			}
		}
	}

	var err error
	rules.ResponsibleNames = trimAll(f.ResponsibleNames)
	if rules.namePattern, err = alternation(rules.ResponsibleNames); err != nil {
		return nil, fmt.Errorf("responsible names: %w", err)
	}
	rules.Organizations = trimAll(f.Organizations)
	if rules.orgPattern, err = alternation(rules.Organizations); err != nil {
		return nil, fmt.Errorf("organizations: %w", err)
	}
	return rules, nil
}

// phrasePattern turns "aguardando configuração" into a matcher over folded
// text that tolerates any whitespace, or none, between words.
func phrasePattern(phrase string) (*regexp.Regexp, error) {
	words := strings.Fields(fold(phrase))
	if len(words) == 0 {
		return nil, errors.New("empty status phrase")
	}
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return regexp.Compile(strings.Join(words, `\s*`))
}

func alternation(words []string) (*regexp.Regexp, error) {
	if len(words) == 0 {
		return nil, nil
	}
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			return nil, errors.New("empty entry")
		}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	return regexp.Compile(`(?i)` + strings.Join(quoted, "|"))
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orDefault(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
