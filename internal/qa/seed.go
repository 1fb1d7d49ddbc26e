package qa

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// seedEntry is one built-in curation question.
type seedEntry struct {
	category string
	question string
	sources  []string
	weight   float64
}

// seedQuestions is the starter question bank for a fresh knowledge base.
// Questions the owner hasn't answered yet show up in the curation queue,
// highest weight first.
var seedQuestions = []seedEntry{
	{
		category: "Portfolio/Process",
		weight:   5,
		sources:  []string{"https://www.nngroup.com/articles/ux-design-portfolios/"},
		question: "What problem did you solve in your most impactful project, and what constraints did you face?",
	},
	{
		category: "Portfolio/Process",
		weight:   5,
		sources:  []string{"https://www.interaction-design.org/literature/article/design-a-stand-out-ui-design-portfolio"},
		question: "What measurable outcomes did your work achieve?",
	},
	{
		category: "Frontend/Performance",
		weight:   5,
		sources:  []string{},
		question: "How do you diagnose and fix a React app that regressed from 2s to 6s load time?",
	},
	{
		category: "3D/Animation",
		weight:   5,
		sources:  []string{},
		question: "How do you balance visual fidelity with performance in R3F/Three.js scenes?",
	},
	{
		category: "Freelance/Logistics",
		weight:   5,
		sources:  []string{"https://www.business.com/articles/questions-to-ask-web-developer/"},
		question: "What is your project process and typical timeline from discovery to launch?",
	},
	{
		category: "Fit",
		weight:   3,
		sources:  []string{},
		question: "What types of projects excite you most, and what don't you take on?",
	},
}

// Seed upserts the built-in question bank, keyed by question text.
// Existing entries get refreshed category/sources/weight; an answer already
// written by the owner is never touched. Returns the number of rows upserted.
func Seed(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	count := 0
	for _, s := range seedQuestions {
		_, err := pool.Exec(ctx,
			`INSERT INTO about_qa (category, question, sources, weight)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (question) DO UPDATE
			 SET category = EXCLUDED.category,
			     sources = EXCLUDED.sources,
			     weight = EXCLUDED.weight`,
			s.category, s.question, s.sources, s.weight,
		)
		if err != nil {
			return count, fmt.Errorf("seeding question %q: %w", s.question, err)
		}
		count++
	}

	logger.Info("seeded question bank", "count", count)
	return count, nil
}
