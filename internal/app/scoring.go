package app

import (
	"math"

	"secaware-training-service/internal/domain"
)

// DefaultScenarioPoints is awarded for a correct scenario choice that carries no explicit points.
const DefaultScenarioPoints = 10

// ScoreSession evaluates answers against the authoritative items. Answers whose
// item no longer resolves are skipped and do not count toward the total.
func ScoreSession(gameType domain.Kind, items map[string]domain.Item, answers []domain.Answer) domain.Scorecard {
	card := domain.Scorecard{
		GameType: gameType,
		Items:    make([]domain.ItemResult, 0, len(answers)),
		Outcomes: make([]domain.ItemOutcome, 0, len(answers)),
	}

	points := 0
	for _, answer := range answers {
		item, ok := items[answer.ItemID]
		if !ok {
			continue
		}
		res := scoreItem(item, answer)
		card.Items = append(card.Items, res)
		card.Outcomes = append(card.Outcomes, domain.ItemOutcome{
			ItemID:     answer.ItemID,
			Selected:   answer.Selected,
			IsPhishing: answer.IsPhishing,
			Correct:    res.Correct,
			Points:     res.Points,
			ElapsedMs:  answer.ElapsedMs,
		})
		if res.Correct {
			card.CorrectCount++
		}
		points += res.Points
	}
	card.Total = len(card.Items)

	if gameType == domain.KindScenario {
		card.Score = points
	} else {
		card.Score = Percentage(card.CorrectCount, card.Total)
	}
	return card
}

// Percentage is round(100 * correct / total), or 0 for an empty set.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// scoreItem dispatches on the item kind.
func scoreItem(item domain.Item, answer domain.Answer) domain.ItemResult {
	switch item.Kind {
	case domain.KindQuiz:
		return scoreQuiz(item, answer)
	case domain.KindPhishing:
		return scorePhishing(item, answer)
	case domain.KindScenario:
		return scoreScenario(item, answer)
	}
	return domain.ItemResult{ItemID: item.ID, Kind: item.Kind}
}

func scoreQuiz(item domain.Item, answer domain.Answer) domain.ItemResult {
	q := item.Quiz
	selected := answer.Selected
	correctIndex := q.CorrectIndex
	correct := selected != domain.NoSelection && selected == correctIndex

	res := domain.ItemResult{
		ItemID:        item.ID,
		Kind:          item.Kind,
		Label:         q.Prompt,
		Correct:       correct,
		Selected:      &selected,
		CorrectAnswer: &correctIndex,
		Explanation:   q.Explanation,
	}
	if correct {
		res.Points = 1
	}
	return res
}

func scorePhishing(item domain.Item, answer domain.Answer) domain.ItemResult {
	p := item.Phishing
	verdict := answer.IsPhishing
	truth := p.IsPhishing
	email := p.Email
	flags := append([]domain.RedFlag{}, p.RedFlags...)

	res := domain.ItemResult{
		ItemID:      item.ID,
		Kind:        item.Kind,
		Label:       p.Title,
		Correct:     verdict == truth,
		UserVerdict: &verdict,
		IsPhishing:  &truth,
		Explanation: p.Explanation,
		RedFlags:    flags,
		Email:       &email,
	}
	if res.Correct {
		res.Points = 1
	}
	return res
}

func scoreScenario(item domain.Item, answer domain.Answer) domain.ItemResult {
	s := item.Scenario
	selected := answer.Selected
	res := domain.ItemResult{
		ItemID:   item.ID,
		Kind:     item.Kind,
		Label:    s.Title,
		Selected: &selected,
	}

	correctIndex := -1
	for i, c := range s.Choices {
		if c.IsCorrect {
			correctIndex = i
			res.CorrectChoice = c.Text
			break
		}
	}
	if correctIndex >= 0 {
		res.CorrectAnswer = &correctIndex
	}

	if selected < 0 || selected >= len(s.Choices) {
		return res
	}
	choice := s.Choices[selected]
	res.Correct = choice.IsCorrect
	res.Explanation = choice.Feedback
	res.Points = choice.Points
	if choice.IsCorrect && choice.Points == 0 {
		res.Points = DefaultScenarioPoints
	}
	return res
}
