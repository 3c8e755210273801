package cli

import "edubot-quiz/internal/domain"

// sampleQuizzes seeds the in-memory bank and the migrate --seed path.
func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			Ref:   domain.QuizRef{Kind: domain.KindHomework, ID: "hw-1"},
			Title: "Lesson 1 homework",
			Questions: []domain.Question{
				{
					ID:        "hw-1-q1",
					Text:      "What is 2 + 2?",
					TimeLimit: 30,
					Topic:     "arithmetic",
					Options: []domain.Option{
						{ID: "hw-1-q1-a", Text: "3", Order: 0},
						{ID: "hw-1-q1-b", Text: "4", Correct: true, Order: 1},
						{ID: "hw-1-q1-c", Text: "5", Order: 2},
					},
				},
				{
					ID:        "hw-1-q2",
					Text:      "What is 3 x 3?",
					TimeLimit: 20,
					Topic:     "arithmetic",
					Options: []domain.Option{
						{ID: "hw-1-q2-a", Text: "9", Correct: true, Order: 0},
						{ID: "hw-1-q2-b", Text: "6", Order: 1},
					},
				},
			},
		},
		{
			Ref:   domain.QuizRef{Kind: domain.KindBonus, ID: "bonus-1"},
			Title: "Bonus geography",
			Questions: []domain.Question{
				{
					ID:        "bonus-1-q1",
					Text:      "Capital of France?",
					TimeLimit: 30,
					Options: []domain.Option{
						{ID: "bonus-1-q1-a", Text: "Paris", Correct: true, Order: 0},
						{ID: "bonus-1-q1-b", Text: "Rome", Order: 1},
						{ID: "bonus-1-q1-c", Text: "Madrid", Order: 2},
					},
				},
			},
		},
		{
			Ref:   domain.QuizRef{Kind: domain.KindSubject, ID: "math"},
			Title: "Math",
			Questions: []domain.Question{
				{ID: "math-1", Text: "7 - 4 = ?", TimeLimit: 20, Topic: "subtraction", Options: []domain.Option{
					{ID: "math-1-a", Text: "3", Correct: true, Order: 0}, {ID: "math-1-b", Text: "4", Order: 1},
				}},
				{ID: "math-2", Text: "12 / 4 = ?", TimeLimit: 20, Topic: "division", Options: []domain.Option{
					{ID: "math-2-a", Text: "2", Order: 0}, {ID: "math-2-b", Text: "3", Correct: true, Order: 1},
				}},
			},
		},
		{
			Ref:   domain.QuizRef{Kind: domain.KindSubject, ID: "history"},
			Title: "History",
			Questions: []domain.Question{
				{ID: "history-1", Text: "Year the Berlin Wall fell?", TimeLimit: 30, Topic: "20th century", Options: []domain.Option{
					{ID: "history-1-a", Text: "1989", Correct: true, Order: 0}, {ID: "history-1-b", Text: "1991", Order: 1},
				}},
			},
		},
	}
}
