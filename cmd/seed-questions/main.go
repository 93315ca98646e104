package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-qbank/internal/config"
	"github.com/stemsi/exstem-qbank/internal/database"
	"github.com/stemsi/exstem-qbank/internal/logger"
	"github.com/stemsi/exstem-qbank/internal/model"
	"github.com/stemsi/exstem-qbank/internal/repository"
	"github.com/stemsi/exstem-qbank/internal/service"
)

func main() {
	var (
		file      string
		creatorID int
		approve   bool
		semester  string
		module    string
		course    string
	)
	flag.StringVar(&file, "file", "questions.json", "JSON array of question payloads")
	flag.IntVar(&creatorID, "creator", 1, "User id recorded as creator")
	flag.BoolVar(&approve, "approve", false, "Approve every imported question")
	flag.StringVar(&semester, "semester", "Seed semester", "Semester for payloads without course_id")
	flag.StringVar(&module, "module", "Seed module", "Module for payloads without course_id")
	flag.StringVar(&course, "course", "Seed course", "Course for payloads without course_id")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "seed-questions")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	payloads, err := readPayloads(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to read questions")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	courseID, err := ensureCourse(ctx, pool, semester, module, course)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare seed course")
	}

	registry := service.NewRegistry(
		service.NewSingleChoiceHandler(repository.NewSingleChoiceRepository(pool)),
		service.NewMultipleChoiceHandler(repository.NewMultipleChoiceRepository(pool)),
		service.NewAssignmentHandler(repository.NewAssignmentRepository(pool)),
	)
	questionService := service.NewQuestionService(
		repository.NewQuestionRepository(pool),
		repository.NewOriginRepository(pool),
		registry,
		nil,
		log,
	)
	caller := model.Caller{UserID: creatorID, Role: model.RoleAdmin}

	fmt.Printf("=== Importing %d questions ===\n", len(payloads))

	successCount := 0
	for i, payload := range payloads {
		body, err := withDefaultCourse(payload, courseID)
		if err != nil {
			fmt.Printf("Skipping question %d: %v\n", i+1, err)
			continue
		}

		view, err := questionService.Create(ctx, caller, body)
		if err != nil {
			fmt.Printf("Error importing question %d: %v\n", i+1, err)
			continue
		}
		if approve {
			if err := questionService.Approve(ctx, caller, view.ID); err != nil {
				fmt.Printf("Error approving question %d (id %d): %v\n", i+1, view.ID, err)
				continue
			}
		}

		successCount++
		if successCount%25 == 0 {
			fmt.Printf("Imported %d questions...\n", successCount)
		}
	}

	fmt.Printf("\nSeed completed! Imported %d/%d questions.\n", successCount, len(payloads))
}

func readPayloads(path string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var payloads []json.RawMessage
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return payloads, nil
}

// withDefaultCourse fills in course_id when the payload has none.
func withDefaultCourse(payload json.RawMessage, courseID int) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	if _, ok := fields["course_id"]; ok {
		return payload, nil
	}
	fields["course_id"] = json.RawMessage(fmt.Sprint(courseID))
	return json.Marshal(fields)
}

// ensureCourse finds the course by name or creates it together with its
// module and semester.
func ensureCourse(ctx context.Context, pool *pgxpool.Pool, semester, module, course string) (int, error) {
	var courseID int
	err := pool.QueryRow(ctx, `SELECT id FROM course WHERE name = $1 ORDER BY id LIMIT 1`, course).Scan(&courseID)
	if err == nil {
		fmt.Printf("Found existing course %q with ID: %d\n", course, courseID)
		return courseID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("find course: %w", err)
	}

	fmt.Printf("Course %q not found. Creating it...\n", course)
	err = database.WithTx(ctx, pool, func(tx pgx.Tx) error {
		var semesterID, moduleID int
		if err := tx.QueryRow(ctx,
			`INSERT INTO semester (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`, semester).Scan(&semesterID); err != nil {
			return fmt.Errorf("upsert semester: %w", err)
		}
		if err := tx.QueryRow(ctx,
			`INSERT INTO module (name, semester_id) VALUES ($1, $2) RETURNING id`,
			module, semesterID).Scan(&moduleID); err != nil {
			return fmt.Errorf("insert module: %w", err)
		}
		return tx.QueryRow(ctx,
			`INSERT INTO course (name, module_id) VALUES ($1, $2) RETURNING id`,
			course, moduleID).Scan(&courseID)
	})
	if err != nil {
		return 0, err
	}
	fmt.Printf("Created course with ID: %d\n", courseID)
	return courseID, nil
}
