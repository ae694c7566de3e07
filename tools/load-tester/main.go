package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func main() {
	targetURL := flag.String("url", "http://localhost:8080/api/v1/plugin/events", "Target URL for event creation")
	apiKey := flag.String("api-key", "supersecretkey", "API key for tenant resolution")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Requests per second limit")
	flag.Parse()

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var successCount, limitedCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					limiter.Wait(ctx) // Wait for token from rate limiter

					payload := fmt.Sprintf(`{"title": "load test event %s", "description": "from worker %d", "startsAt": "%s"}`,
						uuid.NewString(), workerID, time.Now().Add(time.Hour).Format(time.RFC3339Nano))

					req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewBufferString(payload))
					if err != nil {
						continue // Should not happen
					}
					req.Header.Set("Content-Type", "application/json")
					req.Header.Set("X-API-Key", *apiKey)

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}

					switch resp.StatusCode {
					case http.StatusCreated:
						successCount.Add(1)
					case http.StatusTooManyRequests:
						limitedCount.Add(1)
					default:
						errorCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + limitedCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (201 Created): %d", successCount.Load())
	log.Printf("Rate Limited (429): %d", limitedCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
