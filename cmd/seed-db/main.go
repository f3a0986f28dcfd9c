// Command seed-db loads the catalog reference data the ordering engine
// serves: products, branches, loyalty rewards, and trivia questions.
// Inserts are idempotent, so the command is safe to re-run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Yuliannahernandez/backend-app/internal/storage/postgres"
)

type seedData struct {
	Products []struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Price       decimal.Decimal `json:"price"`
		PrepMinutes int             `json:"prep_minutes"`
		Orderable   bool            `json:"orderable"`
		Category    string          `json:"category"`
	} `json:"products"`
	Branches []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Open bool   `json:"open"`
	} `json:"branches"`
	Rewards []struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Description    string `json:"description"`
		PointsRequired int    `json:"points_required"`
		Kind           string `json:"kind"`
		Value          string `json:"value"`
		Active         bool   `json:"active"`
	} `json:"rewards"`
	TriviaQuestions []struct {
		ID      int    `json:"id"`
		Text    string `json:"text"`
		Options []struct {
			ID      int    `json:"id"`
			Text    string `json:"text"`
			Correct bool   `json:"correct"`
		} `json:"options"`
	} `json:"trivia_questions"`
}

func main() {
	var (
		databaseURL string
		seedFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedFile, "seed-file", "db/seed/seed.json", "path to seed data JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, seedFile string) error {
	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}

	var data seedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return errors.Wrap(err, "parse seed file")
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	for _, p := range data.Products {
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, name, price, prep_minutes, orderable, category)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, price = EXCLUDED.price,
				prep_minutes = EXCLUDED.prep_minutes,
				orderable = EXCLUDED.orderable, category = EXCLUDED.category`,
			p.ID, p.Name, p.Price, p.PrepMinutes, p.Orderable, p.Category,
		)
		if err != nil {
			return errors.Wrapf(err, "seed product %s", p.ID)
		}
	}
	slog.Info("products seeded", slog.Int("count", len(data.Products)))

	for _, b := range data.Branches {
		_, err := pool.Exec(ctx, `
			INSERT INTO branches (id, name, open) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, open = EXCLUDED.open`,
			b.ID, b.Name, b.Open,
		)
		if err != nil {
			return errors.Wrapf(err, "seed branch %s", b.ID)
		}
	}
	slog.Info("branches seeded", slog.Int("count", len(data.Branches)))

	for _, r := range data.Rewards {
		_, err := pool.Exec(ctx, `
			INSERT INTO rewards (id, name, description, points_required, kind, value, active)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, description = EXCLUDED.description,
				points_required = EXCLUDED.points_required,
				kind = EXCLUDED.kind, value = EXCLUDED.value, active = EXCLUDED.active`,
			r.ID, r.Name, r.Description, r.PointsRequired, r.Kind, r.Value, r.Active,
		)
		if err != nil {
			return errors.Wrapf(err, "seed reward %s", r.ID)
		}
	}
	slog.Info("rewards seeded", slog.Int("count", len(data.Rewards)))

	for _, q := range data.TriviaQuestions {
		_, err := pool.Exec(ctx, `
			INSERT INTO trivia_questions (id, text) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text`,
			q.ID, q.Text,
		)
		if err != nil {
			return errors.Wrapf(err, "seed trivia question %d", q.ID)
		}
		for _, o := range q.Options {
			_, err := pool.Exec(ctx, `
				INSERT INTO trivia_options (id, question_id, text, correct)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET
					question_id = EXCLUDED.question_id,
					text = EXCLUDED.text, correct = EXCLUDED.correct`,
				o.ID, q.ID, o.Text, o.Correct,
			)
			if err != nil {
				return errors.Wrapf(err, "seed trivia option %d", o.ID)
			}
		}
	}
	slog.Info("trivia questions seeded", slog.Int("count", len(data.TriviaQuestions)))

	return nil
}
