package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/slot-scheduler/internal/db"
	"github.com/clinicdesk/slot-scheduler/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	clinicID := uuid.New()
	if raw := os.Getenv("CLINIC_ID"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			log.Fatalf("invalid CLINIC_ID: %v", err)
		}
		clinicID = parsed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedDoctors(context.Background(), pool, clinicID, 25); err != nil {
		log.Fatalf("seed doctors: %v", err)
	}

	log.Printf("seed complete for clinic %s", clinicID)
}

func seedDoctors(ctx context.Context, pool *pgxpool.Pool, clinicID uuid.UUID, count int) error {
	log.Printf("seeding %d doctors", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := "Dr. " + gofakeit.Name()
		duration := []int{10, 15, 20, 30}[gofakeit.Number(0, 3)]

		template, err := json.Marshal(randomWeekTemplate())
		if err != nil {
			return err
		}
		leaves, err := json.Marshal(randomLeaves())
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO doctors (id, clinic_id, name, avg_consult_minutes,
				week_template, leave_overrides, consultation_status,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'out', now(), now())
		`, id, clinicID, name, duration, template, leaves)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("doctors seeded")
	return nil
}

// randomWeekTemplate builds a plausible clinic week: weekday mornings,
// sometimes an evening session, weekends mostly off. Times are emitted in
// both legacy formats on purpose, since production data carries both.
func randomWeekTemplate() schedule.WeekTemplate {
	week := schedule.WeekTemplate{}
	days := []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

	for i, day := range days {
		if day == "saturday" && gofakeit.Bool() {
			continue
		}

		sessions := []schedule.TimeRange{{Start: "09:00 AM", End: "01:00 PM"}}
		if gofakeit.Bool() {
			// 24-hour form for the evening session.
			sessions = append(sessions, schedule.TimeRange{Start: "17:00", End: "20:00"})
		}
		if i%3 == 0 {
			sessions[0] = schedule.TimeRange{Start: "10:00 AM", End: "02:00 PM"}
		}

		week[day] = schedule.DayTemplate{Sessions: sessions}
	}

	return week
}

func randomLeaves() schedule.LeaveOverrides {
	leaves := schedule.LeaveOverrides{}
	if gofakeit.Number(0, 4) != 0 {
		return leaves
	}

	// Block a morning hour a few days out.
	date := time.Now().AddDate(0, 0, gofakeit.Number(1, 10)).Format(schedule.DateLayout)
	leaves[date] = []schedule.TimeRange{{Start: "11:00 AM", End: "12:00 PM"}}
	return leaves
}
