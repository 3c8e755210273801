package flavor

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"edubot-quiz/internal/domain"
)

const (
	// DefaultPerSubject is the sample size per subject when params leave it unset.
	DefaultPerSubject = 5

	strongPercent = 70
	weakPercent   = 50
)

// MockExam samples questions across subjects and reports strengths and weaknesses.
// It computes no points.
type MockExam struct {
	store
	bank QuestionBank

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMockExam builds the strategy; rnd may be nil for a time-seeded source.
func NewMockExam(bank QuestionBank, results ResultStore, rnd *rand.Rand) *MockExam {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockExam{store: store{results: results}, bank: bank, rnd: rnd}
}

func (m *MockExam) Flavor() domain.Flavor { return domain.FlavorMockExam }

func (m *MockExam) Identity(params domain.QuizParams) domain.QuizIdentity {
	return domain.QuizIdentity{Flavor: domain.FlavorMockExam, ID: strings.Join(params.Subjects, ",")}
}

func (m *MockExam) LoadQuestions(ctx context.Context, _ domain.Owner, params domain.QuizParams) ([]domain.Question, error) {
	if len(params.Subjects) == 0 {
		return nil, fmt.Errorf("%w: no subjects selected", domain.ErrQuizNotFound)
	}
	per := params.PerSubject
	if per <= 0 {
		per = DefaultPerSubject
	}

	var out []domain.Question
	for _, subject := range params.Subjects {
		pool, err := loadQuestions(ctx, m.bank, domain.QuizRef{Kind: domain.KindSubject, ID: subject})
		if err != nil {
			return nil, fmt.Errorf("subject %s: %w", subject, err)
		}
		for _, q := range m.sample(pool, per) {
			if q.Subject == "" {
				q.Subject = subject
			}
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *MockExam) sample(pool []domain.Question, n int) []domain.Question {
	if n > len(pool) {
		n = len(pool)
	}
	m.mu.Lock()
	perm := m.rnd.Perm(len(pool))
	m.mu.Unlock()

	picked := make([]domain.Question, 0, n)
	for _, idx := range perm[:n] {
		picked = append(picked, pool[idx].Clone())
	}
	return picked
}

func (m *MockExam) ComputePoints(int, int, bool) int { return 0 }

func (m *MockExam) RenderSummary(result domain.QuizResult) string {
	var b strings.Builder
	b.WriteString("Mock exam finished\n")
	writeScore(&b, result)

	subjects := tally(result.Outcomes, func(o domain.QuestionOutcome) string { return o.Subject })
	topics := tally(result.Outcomes, func(o domain.QuestionOutcome) string { return o.Topic })

	if len(subjects) > 0 {
		b.WriteString("\nBy subject:\n")
		for _, s := range subjects {
			fmt.Fprintf(&b, "  %s: %d/%d (%d%%)\n", s.name, s.correct, s.total, s.percent())
		}
		writeSplit(&b, subjects, "Strong subjects", "Subjects to review")
	}
	if len(topics) > 0 {
		b.WriteString("\nBy topic:\n")
		for _, t := range topics {
			fmt.Fprintf(&b, "  %s: %d/%d (%d%%)\n", t.name, t.correct, t.total, t.percent())
		}
		writeSplit(&b, topics, "Strengths", "Needs work")
	}
	return strings.TrimRight(b.String(), "\n")
}

type bucket struct {
	name    string
	correct int
	total   int
}

func (b bucket) percent() int {
	if b.total == 0 {
		return 0
	}
	return b.correct * 100 / b.total
}

// tally groups outcomes by key, skipping empty keys, sorted by name.
func tally(outcomes []domain.QuestionOutcome, key func(domain.QuestionOutcome) string) []bucket {
	byName := make(map[string]*bucket)
	for _, o := range outcomes {
		name := key(o)
		if name == "" {
			continue
		}
		b, ok := byName[name]
		if !ok {
			b = &bucket{name: name}
			byName[name] = b
		}
		b.total++
		if o.Correct {
			b.correct++
		}
	}
	out := make([]bucket, 0, len(byName))
	for _, b := range byName {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func writeSplit(b *strings.Builder, buckets []bucket, strongLabel, weakLabel string) {
	strong, weak := split(buckets)
	if len(strong) > 0 {
		fmt.Fprintf(b, "%s: %s\n", strongLabel, strings.Join(strong, ", "))
	}
	if len(weak) > 0 {
		fmt.Fprintf(b, "%s: %s\n", weakLabel, strings.Join(weak, ", "))
	}
}

func split(buckets []bucket) (strong, weak []string) {
	for _, b := range buckets {
		switch p := b.percent(); {
		case p >= strongPercent:
			strong = append(strong, b.name)
		case p < weakPercent:
			weak = append(weak, b.name)
		}
	}
	return strong, weak
}
