// Command loadgen is a standalone stress-test client for the gateway's
// POST /payments endpoint, adapted from the teacher's root stress.go.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type paymentRequest struct {
	CorrelationID string  `json:"correlationId"`
	Amount        float64 `json:"amount"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:9999/payments", "target POST /payments URL")
		total       = flag.Int("n", 500, "total requests to send")
		concurrency = flag.Int("c", 20, "concurrent in-flight requests")
		amount      = flag.Float64("amount", 19.90, "amount per payment")
	)
	flag.Parse()

	var success, timeout, errorCount int64

	sem := make(chan struct{}, *concurrency)
	var wg sync.WaitGroup

	client := &http.Client{Timeout: 2 * time.Second}

	for i := 0; i < *total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			payload := paymentRequest{
				CorrelationID: uuid.NewString(),
				Amount:        *amount,
			}
			b, _ := json.Marshal(payload)
			req, _ := http.NewRequest(http.MethodPost, *url, bytes.NewReader(b))
			req.Header.Set("Content-Type", "application/json")

			resp, err := client.Do(req)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					atomic.AddInt64(&timeout, 1)
				} else {
					atomic.AddInt64(&errorCount, 1)
				}
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode == http.StatusOK {
				atomic.AddInt64(&success, 1)
			} else {
				fmt.Printf("http %d: %s\n", resp.StatusCode, string(body))
				atomic.AddInt64(&errorCount, 1)
			}
		}()
	}
	wg.Wait()

	fmt.Printf("success: %d\ntimeout: %d\nerror: %d\n", success, timeout, errorCount)
}
