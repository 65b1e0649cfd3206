// Command simulate hammers the booking endpoint with concurrent walk-in and
// online bookings for one doctor and date, then audits the database for
// double-held slots. Useful for demonstrating that the day lock plus the
// partial unique index hold up under contention.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clinicdesk/slot-scheduler/internal/db"
)

type simConfig struct {
	apiBaseURL string
	clinicID   string
	doctorID   string
	date       string
	workers    int
	requests   int
	walkInPct  int
}

type opMetrics struct {
	total     int64
	success   int64
	conflict  int64
	errored   int64
	mu        sync.Mutex
	latencies []time.Duration
}

func (m *opMetrics) record(latency time.Duration, status int) {
	atomic.AddInt64(&m.total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&m.success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&m.conflict, 1)
	default:
		atomic.AddInt64(&m.errored, 1)
	}

	m.mu.Lock()
	m.latencies = append(m.latencies, latency)
	m.mu.Unlock()
}

func (m *opMetrics) percentile(p int) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := simConfig{}
	flag.StringVar(&cfg.apiBaseURL, "api", "http://localhost:8080", "API base URL")
	flag.StringVar(&cfg.clinicID, "clinic", "", "clinic UUID")
	flag.StringVar(&cfg.doctorID, "doctor", "", "doctor UUID")
	flag.StringVar(&cfg.date, "date", time.Now().Format("2006-01-02"), "booking date")
	flag.IntVar(&cfg.workers, "workers", 16, "concurrent workers")
	flag.IntVar(&cfg.requests, "requests", 200, "total booking attempts")
	flag.IntVar(&cfg.walkInPct, "walkin", 50, "percentage of walk-in bookings")
	flag.Parse()

	if cfg.clinicID == "" || cfg.doctorID == "" {
		log.Fatal("-clinic and -doctor are required")
	}

	metrics := &opMetrics{}
	client := &http.Client{Timeout: 10 * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < cfg.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for range jobs {
				bookOnce(client, cfg, metrics)
			}
		}(w)
	}

	start := time.Now()
	for i := 0; i < cfg.requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	fmt.Printf("\n--- booking race results ---\n")
	fmt.Printf("requests:  %d in %s\n", metrics.total, time.Since(start).Round(time.Millisecond))
	fmt.Printf("booked:    %d\n", metrics.success)
	fmt.Printf("conflicts: %d\n", metrics.conflict)
	fmt.Printf("errors:    %d\n", metrics.errored)
	fmt.Printf("p50=%s p95=%s\n", metrics.percentile(50), metrics.percentile(95))

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		if err := auditSlots(cfg, dsn); err != nil {
			log.Fatalf("slot audit: %v", err)
		}
	} else {
		log.Println("POSTGRES_DSN not set, skipping slot audit")
	}
}

func bookOnce(client *http.Client, cfg simConfig, metrics *opMetrics) {
	via := "online"
	if rand.Intn(100) < cfg.walkInPct {
		via = "walk_in"
	}

	body, _ := json.Marshal(map[string]string{
		"clinic_id":    cfg.clinicID,
		"doctor_id":    cfg.doctorID,
		"date":         cfg.date,
		"patient_name": fmt.Sprintf("sim-patient-%d", rand.Intn(100000)),
		"booked_via":   via,
	})

	start := time.Now()
	resp, err := client.Post(cfg.apiBaseURL+"/appointments", "application/json", bytes.NewReader(body))
	latency := time.Since(start)
	if err != nil {
		metrics.record(latency, 0)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	metrics.record(latency, resp.StatusCode)
}

// auditSlots verifies the core invariant directly against the store: no
// (doctor, date, slot) pair may be held by more than one live appointment.
func auditSlots(cfg simConfig, dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	rows, err := pool.Query(ctx, `
		SELECT slot_index, count(*)
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		  AND status IN ('pending', 'confirmed', 'completed')
		GROUP BY slot_index
		HAVING count(*) > 1
	`, cfg.doctorID, cfg.date)
	if err != nil {
		return err
	}
	defer rows.Close()

	violations := 0
	for rows.Next() {
		var slot, n int
		if err := rows.Scan(&slot, &n); err != nil {
			return err
		}
		log.Printf("DOUBLE BOOKING: slot %d held by %d live appointments", slot, n)
		violations++
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if violations > 0 {
		return fmt.Errorf("%d double-booked slots found", violations)
	}
	fmt.Println("slot audit clean: no double-held slots")
	return nil
}
