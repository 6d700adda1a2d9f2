package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEventStreamEmitsNotificationChanges(t *testing.T) {
	harness := newTestHarness(t)
	server := httptest.NewServer(harness.handler)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	streamRequest, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", http.NoBody)
	if err != nil {
		t.Fatalf("failed to construct stream request: %v", err)
	}
	streamResp, err := http.DefaultClient.Do(streamRequest)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() {
		_ = streamResp.Body.Close()
	})
	if streamResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected stream status: %d", streamResp.StatusCode)
	}
	if contentType := streamResp.Header.Get("Content-Type"); !strings.HasPrefix(contentType, "text/event-stream") {
		t.Fatalf("unexpected content type %q", contentType)
	}

	streamReader := bufio.NewReader(streamResp.Body)
	readEvent(t, streamReader, realtimeEventReady)

	likeResp, err := http.Post(server.URL+"/posts/post_1/like", "application/json",
		strings.NewReader(`{"actor":{"id":"user_sam","username":"sam_grills"}}`))
	if err != nil {
		t.Fatalf("like request failed: %v", err)
	}
	_ = likeResp.Body.Close()
	if likeResp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected like status: %d", likeResp.StatusCode)
	}

	payload := readEvent(t, streamReader, RealtimeEventNotificationsChanged)
	var message RealtimeMessage
	if err := json.Unmarshal([]byte(payload), &message); err != nil {
		t.Fatalf("failed to decode event payload: %v", err)
	}
	if !strings.HasPrefix(message.NotificationID, "social_like") {
		t.Fatalf("unexpected notification id %q", message.NotificationID)
	}
}

// readEvent returns the data line of the first event of eventType.
func readEvent(t *testing.T, streamReader *bufio.Reader, eventType string) string {
	t.Helper()
	currentEventType := ""
	deadline := time.After(5 * time.Second)
	type readResult struct {
		line string
		err  error
	}
	for {
		resultCh := make(chan readResult, 1)
		go func() {
			line, err := streamReader.ReadString('\n')
			resultCh <- readResult{line: line, err: err}
		}()
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", eventType)
		case res := <-resultCh:
			if res.err != nil {
				t.Fatalf("failed to read stream: %v", res.err)
			}
			line := strings.TrimSpace(res.line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				currentEventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if !strings.HasPrefix(line, "data:") || currentEventType != eventType {
				continue
			}
			return strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}
