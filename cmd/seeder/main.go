// Command seeder bootstraps a fresh deployment through the admin API: it
// syncs fixtures, enriches upcoming matches and generates their predictions.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/kickoffai/predictions-api/internal/logger"
	"github.com/kickoffai/predictions-api/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type step struct {
	name string
	path string
	body any
}

func main() {
	apiURL := flag.String("api", "http://localhost:8080/api/v1", "API base URL")
	days := flag.Int("days", 7, "days of upcoming fixtures to sync")
	pastDays := flag.Int("past-days", 14, "days of finished fixtures to sync for team history")
	skipEnrich := flag.Bool("skip-enrich", false, "skip the enrichment step")
	flag.Parse()

	_ = godotenv.Load()

	log, err := logger.New("predictions-seeder", "development")
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	token := os.Getenv("ADMIN_TOKEN")
	if token == "" {
		log.Fatal("ADMIN_TOKEN must be set")
	}

	steps := []step{
		{name: "sync", path: "/sync", body: models.SyncRequest{Days: *days, PastDays: *pastDays}},
	}
	if !*skipEnrich {
		steps = append(steps, step{name: "enrich", path: "/enrich", body: models.EnrichRequest{}})
	}
	steps = append(steps, step{name: "refresh", path: "/predictions/refresh"})

	// Bulk jobs pace their upstream calls, so a run can take minutes.
	client := &http.Client{Timeout: 15 * time.Minute}
	for _, s := range steps {
		start := time.Now()
		status, body, err := post(client, *apiURL+s.path, token, s.body)
		if err != nil {
			log.Fatal("request failed", zap.String("step", s.name), zap.Error(err))
		}
		if status != http.StatusOK {
			log.Fatal("step failed", zap.String("step", s.name), zap.Int("status", status), zap.ByteString("response", body))
		}
		log.Info("step completed",
			zap.String("step", s.name),
			zap.Duration("took", time.Since(start)),
			zap.ByteString("response", body),
		)
	}
}

func post(client *http.Client, url, token string, payload any) (int, []byte, error) {
	var reader io.Reader = http.NoBody
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(http.MethodPost, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return resp.StatusCode, body, err
}
