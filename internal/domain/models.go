package domain

import (
	"fmt"
	"time"
)

// Flavor names a kind of quiz run.
type Flavor string

const (
	FlavorHomework Flavor = "homework"
	FlavorBonus    Flavor = "bonus_test"
	FlavorMockExam Flavor = "mock_exam"
)

// Bank kinds used to address question banks.
const (
	KindHomework = "homework"
	KindBonus    = "bonus_test"
	KindSubject  = "subject"
)

// QuizRef addresses one question bank.
type QuizRef struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

func (r QuizRef) String() string {
	return r.Kind + ":" + r.ID
}

// QuizIdentity identifies a quiz for first-attempt bookkeeping.
type QuizIdentity struct {
	Flavor Flavor `json:"flavor"`
	ID     string `json:"id"`
}

func (q QuizIdentity) String() string {
	return string(q.Flavor) + ":" + q.ID
}

// Owner is the user running a quiz and the chat the prompts go to.
type Owner struct {
	UserID string `json:"userId"`
	ChatID string `json:"chatId"`
}

// QuizParams selects the snapshot a strategy loads.
type QuizParams struct {
	Flavor      Flavor   `json:"flavor"`
	HomeworkID  string   `json:"homeworkId,omitempty"`
	BonusTestID string   `json:"bonusTestId,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	PerSubject  int      `json:"perSubject,omitempty"`
}

// Option represents a possible answer for a question.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
	Order   int    `json:"order"`
}

// Letter maps the display order to A..J.
func (o Option) Letter() string {
	return OptionLetter(o.Order)
}

// OptionLetter returns the letter for a zero-based display position.
func OptionLetter(order int) string {
	if order < 0 || order >= MaxOptions {
		return "?"
	}
	return string(rune('A' + order))
}

// MinOptions and MaxOptions bound the option list of a question.
const (
	MinOptions = 2
	MaxOptions = 10
)

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	ImageRef  string   `json:"imageRef,omitempty"`
	Options   []Option `json:"options"`
	TimeLimit int      `json:"timeLimit"` // seconds
	Topic     string   `json:"topic,omitempty"`
	Subject   string   `json:"subject,omitempty"`
}

// CorrectOption returns the option flagged correct.
func (q Question) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt, true
		}
	}
	return Option{}, false
}

// Clone returns a deep copy so snapshots never share option slices with the bank.
func (q Question) Clone() Question {
	out := q
	out.Options = append([]Option(nil), q.Options...)
	return out
}

// Quiz is a collection of questions.
type Quiz struct {
	Ref       QuizRef    `json:"ref"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// OutcomeSource tells which completion path finalized a question.
type OutcomeSource string

const (
	SourceAnswer       OutcomeSource = "answer"
	SourceTimeout      OutcomeSource = "timeout"
	SourcePromptClosed OutcomeSource = "prompt_closed"
)

// QuestionOutcome is the recorded result of one question.
type QuestionOutcome struct {
	QuestionID       string        `json:"questionId"`
	SelectedOptionID *string       `json:"selectedOptionId"`
	Correct          bool          `json:"correct"`
	TimeSpent        time.Duration `json:"timeSpent"`
	Topic            string        `json:"topic,omitempty"`
	Subject          string        `json:"subject,omitempty"`
	Source           OutcomeSource `json:"source"`
}

// QuizResult is the persisted summary of a finished session.
type QuizResult struct {
	ID           int64             `json:"id"`
	Owner        Owner             `json:"owner"`
	Identity     QuizIdentity      `json:"identity"`
	Total        int               `json:"total"`
	Correct      int               `json:"correct"`
	Points       int               `json:"points"`
	FirstAttempt bool              `json:"firstAttempt"`
	StartedAt    time.Time         `json:"startedAt"`
	CompletedAt  time.Time         `json:"completedAt"`
	Outcomes     []QuestionOutcome `json:"outcomes"`
}

// Duration is the wall time between session start and completion.
func (r QuizResult) Duration() time.Duration {
	if r.CompletedAt.Before(r.StartedAt) {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Percent returns the share of correct answers in whole percent.
func (r QuizResult) Percent() int {
	if r.Total == 0 {
		return 0
	}
	return r.Correct * 100 / r.Total
}

func (r QuizResult) String() string {
	return fmt.Sprintf("%s %s %d/%d", r.Owner.UserID, r.Identity, r.Correct, r.Total)
}
