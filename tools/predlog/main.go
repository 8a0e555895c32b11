// Command predlog prints the prediction log rows of one match, newest first.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
)

func main() {
	matchID := flag.Int64("match", 0, "match id")
	limit := flag.Int("limit", 20, "max rows")
	flag.Parse()

	if *matchID <= 0 {
		log.Fatal("usage: predlog -match <id> [-limit n]")
	}

	chURL := os.Getenv("CLICKHOUSE_URL")
	if chURL == "" {
		chURL = "clickhouse://localhost:9000/default"
	}

	opts, err := clickhouse.ParseDSN(chURL)
	if err != nil {
		log.Fatalf("Failed to parse DSN: %v", err)
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open connection: %v", err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := conn.Query(ctx, `
		SELECT created_at, outcome, predicted_score, home_win_prob, draw_prob, away_win_prob, source, latency_ms
		FROM prediction_log
		WHERE match_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, *matchID, *limit)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	fmt.Printf("%-24s %-4s %-6s %6s %6s %6s %-9s %8s\n", "created_at", "1N2", "score", "home", "draw", "away", "source", "ms")
	n := 0
	for rows.Next() {
		var (
			createdAt           time.Time
			outcome, score, src string
			home, draw, away    float64
			latencyMs           uint32
		)
		if err := rows.Scan(&createdAt, &outcome, &score, &home, &draw, &away, &src, &latencyMs); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("%-24s %-4s %-6s %6.2f %6.2f %6.2f %-9s %8d\n",
			createdAt.UTC().Format(time.RFC3339), outcome, score, home, draw, away, src, latencyMs)
		n++
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Rows failed: %v", err)
	}
	fmt.Printf("%d row(s)\n", n)
}
