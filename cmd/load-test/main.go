package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type itemPayload struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

type notificationPayload struct {
	Channel     string        `json:"channel"`
	MessageType string        `json:"message_type"`
	SenderID    string        `json:"sender_id"`
	Items       []itemPayload `json:"items"`
}

type createResponse struct {
	NotificationID string `json:"notification_id"`
	Items          int    `json:"items"`
}

type loadTestResult struct {
	TotalRequests   int
	SuccessCount    int32
	FailureCount    int32
	TotalDuration   time.Duration
	RequestsPerSec  float64
	AvgResponseTime time.Duration
	MinResponseTime time.Duration
	MaxResponseTime time.Duration
	Errors          map[string]int
}

func runLoadTest(url string, numRequests, concurrency, itemsPerRequest int) *loadTestResult {
	var (
		successCount  int32
		failureCount  int32
		totalRespTime int64
		minRespTime   int64 = int64(^uint64(0) >> 1)
		maxRespTime   int64
		errorsMu      sync.Mutex
		errors        = make(map[string]int)
		wg            sync.WaitGroup
		semaphore     = make(chan struct{}, concurrency)
	)

	startTime := time.Now()

	fmt.Printf("\nStarting load test: %d requests x %d items, concurrency %d\n",
		numRequests, itemsPerRequest, concurrency)
	fmt.Printf("Target: %s\n", url)

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(reqNum int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			reqStart := time.Now()

			payload := notificationPayload{
				Channel:     "sms",
				MessageType: "transactional",
				SenderID:    "LOADTST",
			}
			for j := 0; j < itemsPerRequest; j++ {
				payload.Items = append(payload.Items, itemPayload{
					Recipient: fmt.Sprintf("98765%05d", (reqNum*itemsPerRequest+j)%100000),
					Message:   fmt.Sprintf("load test message %d/%d", reqNum, j),
				})
			}

			jsonData, _ := json.Marshal(payload)

			resp, err := http.Post(url, "application/json", bytes.NewBuffer(jsonData))
			reqDuration := time.Since(reqStart)

			respTimeNs := reqDuration.Nanoseconds()
			atomic.AddInt64(&totalRespTime, respTimeNs)

			for {
				oldMin := atomic.LoadInt64(&minRespTime)
				if respTimeNs >= oldMin || atomic.CompareAndSwapInt64(&minRespTime, oldMin, respTimeNs) {
					break
				}
			}
			for {
				oldMax := atomic.LoadInt64(&maxRespTime)
				if respTimeNs <= oldMax || atomic.CompareAndSwapInt64(&maxRespTime, oldMax, respTimeNs) {
					break
				}
			}

			if err != nil {
				atomic.AddInt32(&failureCount, 1)
				errorsMu.Lock()
				errors[err.Error()]++
				errorsMu.Unlock()
				return
			}
			defer resp.Body.Close()

			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != http.StatusAccepted {
				atomic.AddInt32(&failureCount, 1)
				errorsMu.Lock()
				errors[fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))]++
				errorsMu.Unlock()
				return
			}

			var created createResponse
			if err := json.Unmarshal(body, &created); err != nil || created.NotificationID == "" {
				atomic.AddInt32(&failureCount, 1)
				errorsMu.Lock()
				errors["bad create response"]++
				errorsMu.Unlock()
				return
			}

			atomic.AddInt32(&successCount, 1)

			if reqNum%10 == 0 {
				fmt.Print(".")
			}
		}(i)
	}

	wg.Wait()
	totalDuration := time.Since(startTime)
	fmt.Println()

	return &loadTestResult{
		TotalRequests:   numRequests,
		SuccessCount:    successCount,
		FailureCount:    failureCount,
		TotalDuration:   totalDuration,
		RequestsPerSec:  float64(numRequests) / totalDuration.Seconds(),
		AvgResponseTime: time.Duration(totalRespTime / int64(numRequests)),
		MinResponseTime: time.Duration(minRespTime),
		MaxResponseTime: time.Duration(maxRespTime),
		Errors:          errors,
	}
}

func printResults(result *loadTestResult) {
	fmt.Printf("\nLoad Test Results\n")
	fmt.Printf("Total Requests:    %d\n", result.TotalRequests)
	fmt.Printf("Success:           %d (%.2f%%)\n", result.SuccessCount,
		float64(result.SuccessCount)/float64(result.TotalRequests)*100)
	fmt.Printf("Failed:            %d (%.2f%%)\n", result.FailureCount,
		float64(result.FailureCount)/float64(result.TotalRequests)*100)
	fmt.Printf("Total Duration:    %v\n", result.TotalDuration)
	fmt.Printf("Requests/sec:      %.2f\n", result.RequestsPerSec)
	fmt.Printf("Avg Response Time: %v\n", result.AvgResponseTime)
	fmt.Printf("Min Response Time: %v\n", result.MinResponseTime)
	fmt.Printf("Max Response Time: %v\n", result.MaxResponseTime)

	if len(result.Errors) > 0 {
		fmt.Println("Errors:")
		for errMsg, count := range result.Errors {
			fmt.Printf("  - %s: %d times\n", errMsg, count)
		}
	}
	fmt.Println()
}

func main() {
	baseURL := "http://localhost:8080/api/notifications"

	fmt.Println("Checking if server is running...")
	resp, err := http.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Printf("cannot connect to server at %s\n", baseURL)
		fmt.Println("make sure notify-api is running")
		return
	}
	resp.Body.Close()
	fmt.Println("Server is running")

	fmt.Println("\nTEST 1: 100 requests x 10 items (concurrency 10)")
	result100 := runLoadTest(baseURL, 100, 10, 10)
	printResults(result100)

	fmt.Println("Waiting 3 seconds before next test...")
	time.Sleep(3 * time.Second)

	fmt.Println("\nTEST 2: 500 requests x 100 items (concurrency 50)")
	result500 := runLoadTest(baseURL, 500, 50, 100)
	printResults(result500)

	fmt.Println("COMPARISON")
	fmt.Printf("100 x 10:  %.2f req/sec | Avg: %v\n", result100.RequestsPerSec, result100.AvgResponseTime)
	fmt.Printf("500 x 100: %.2f req/sec | Avg: %v\n", result500.RequestsPerSec, result500.AvgResponseTime)
}
