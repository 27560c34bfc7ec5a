package domain

import "fmt"

// Kind discriminates the item variants. An item's kind is also the game type it is played in.
type Kind string

const (
	KindQuiz     Kind = "quiz"
	KindPhishing Kind = "phishing"
	KindScenario Kind = "scenario"
)

// FilterAll matches any category or difficulty.
const FilterAll = "all"

// Kinds lists every playable kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindQuiz, KindPhishing, KindScenario}
}

// ParseKind validates a game type string.
func ParseKind(raw string) (Kind, error) {
	switch k := Kind(raw); k {
	case KindQuiz, KindPhishing, KindScenario:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGameType, raw)
}

// Item is one challenge unit. Exactly one payload is set, the one matching Kind.
type Item struct {
	ID         string           `json:"id" yaml:"id"`
	Kind       Kind             `json:"kind" yaml:"kind"`
	Category   string           `json:"category" yaml:"category"`
	Difficulty string           `json:"difficulty" yaml:"difficulty"`
	Quiz       *QuizPayload     `json:"quiz,omitempty" yaml:"quiz,omitempty"`
	Phishing   *PhishingPayload `json:"phishing,omitempty" yaml:"phishing,omitempty"`
	Scenario   *ScenarioPayload `json:"scenario,omitempty" yaml:"scenario,omitempty"`
}

// QuizPayload is a multiple-choice question with one correct option.
type QuizPayload struct {
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
	Explanation  string   `json:"explanation" yaml:"explanation"`
}

// PhishingPayload is an email the learner classifies as phishing or legitimate.
type PhishingPayload struct {
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description" yaml:"description"`
	Email       Email     `json:"email" yaml:"email"`
	RedFlags    []RedFlag `json:"redFlags" yaml:"redFlags"`
	IsPhishing  bool      `json:"isPhishing" yaml:"isPhishing"`
	Explanation string    `json:"explanation" yaml:"explanation"`
}

type Email struct {
	From        Mailbox      `json:"from" yaml:"from"`
	To          Mailbox      `json:"to" yaml:"to"`
	Subject     string       `json:"subject" yaml:"subject"`
	Body        string       `json:"body" yaml:"body"`
	Attachments []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

type Mailbox struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

type Attachment struct {
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Suspicious bool   `json:"suspicious,omitempty" yaml:"suspicious,omitempty"`
}

// RedFlag annotates why a phishing email is malicious.
type RedFlag struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
	Severity    string `json:"severity" yaml:"severity"`
}

// ScenarioPayload is a decision scenario; each choice carries its own points.
type ScenarioPayload struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Situation   string   `json:"situation" yaml:"situation"`
	Choices     []Choice `json:"choices" yaml:"choices"`
}

type Choice struct {
	Text      string `json:"text" yaml:"text"`
	IsCorrect bool   `json:"isCorrect" yaml:"isCorrect"`
	Feedback  string `json:"feedback" yaml:"feedback"`
	Points    int    `json:"points" yaml:"points"`
}

// Validate checks that the payload matches the kind and is internally consistent.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item: missing id")
	}
	switch it.Kind {
	case KindQuiz:
		if it.Quiz == nil || it.Phishing != nil || it.Scenario != nil {
			return fmt.Errorf("item %s: quiz payload required", it.ID)
		}
		if len(it.Quiz.Options) < 2 {
			return fmt.Errorf("item %s: at least 2 options required", it.ID)
		}
		if it.Quiz.CorrectIndex < 0 || it.Quiz.CorrectIndex >= len(it.Quiz.Options) {
			return fmt.Errorf("item %s: correct index %d out of range", it.ID, it.Quiz.CorrectIndex)
		}
	case KindPhishing:
		if it.Phishing == nil || it.Quiz != nil || it.Scenario != nil {
			return fmt.Errorf("item %s: phishing payload required", it.ID)
		}
	case KindScenario:
		if it.Scenario == nil || it.Quiz != nil || it.Phishing != nil {
			return fmt.Errorf("item %s: scenario payload required", it.ID)
		}
		if len(it.Scenario.Choices) < 2 {
			return fmt.Errorf("item %s: at least 2 choices required", it.ID)
		}
	default:
		return fmt.Errorf("item %s: %w: %q", it.ID, ErrInvalidGameType, it.Kind)
	}
	return nil
}

// Label is the human-facing headline of an item (prompt or title).
func (it Item) Label() string {
	switch it.Kind {
	case KindQuiz:
		if it.Quiz != nil {
			return it.Quiz.Prompt
		}
	case KindPhishing:
		if it.Phishing != nil {
			return it.Phishing.Title
		}
	case KindScenario:
		if it.Scenario != nil {
			return it.Scenario.Title
		}
	}
	return ""
}

// ClientItem is the untrusted-caller view of an item: no answer key, no feedback.
type ClientItem struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Category   string          `json:"category"`
	Difficulty string          `json:"difficulty"`
	Quiz       *ClientQuiz     `json:"quiz,omitempty"`
	Phishing   *ClientPhishing `json:"phishing,omitempty"`
	Scenario   *ClientScenario `json:"scenario,omitempty"`
}

type ClientQuiz struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type ClientPhishing struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Email       Email  `json:"email"`
}

type ClientScenario struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Situation   string   `json:"situation"`
	Choices     []string `json:"choices"`
}

// Redact strips every authoritative field so the item can be sent to a learner.
func (it Item) Redact() ClientItem {
	out := ClientItem{
		ID:         it.ID,
		Kind:       it.Kind,
		Category:   it.Category,
		Difficulty: it.Difficulty,
	}
	switch {
	case it.Quiz != nil:
		out.Quiz = &ClientQuiz{
			Prompt:  it.Quiz.Prompt,
			Options: append([]string(nil), it.Quiz.Options...),
		}
	case it.Phishing != nil:
		email := it.Phishing.Email
		email.Attachments = make([]Attachment, len(it.Phishing.Email.Attachments))
		for i, a := range it.Phishing.Email.Attachments {
			email.Attachments[i] = Attachment{Name: a.Name, Type: a.Type}
		}
		out.Phishing = &ClientPhishing{
			Title:       it.Phishing.Title,
			Description: it.Phishing.Description,
			Email:       email,
		}
	case it.Scenario != nil:
		choices := make([]string, len(it.Scenario.Choices))
		for i, c := range it.Scenario.Choices {
			choices[i] = c.Text
		}
		out.Scenario = &ClientScenario{
			Title:       it.Scenario.Title,
			Description: it.Scenario.Description,
			Situation:   it.Scenario.Situation,
			Choices:     choices,
		}
	}
	return out
}

// RedactAll maps Redact over a sampled set, preserving order.
func RedactAll(items []Item) []ClientItem {
	out := make([]ClientItem, len(items))
	for i, it := range items {
		out[i] = it.Redact()
	}
	return out
}

// ItemFilter narrows sampling. Empty or "all" fields match anything.
type ItemFilter struct {
	Category   string
	Difficulty string
}

// Matches reports whether the item passes the filter.
func (f ItemFilter) Matches(it Item) bool {
	return matchField(f.Category, it.Category) && matchField(f.Difficulty, it.Difficulty)
}

func matchField(want, got string) bool {
	return want == "" || want == FilterAll || want == got
}

// ItemCounts is the per-kind size of the catalog.
type ItemCounts map[Kind]int

// Total sums every kind.
func (c ItemCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}
