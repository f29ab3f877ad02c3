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

func TestListingEventsStreamsCommentSnapshots(t *testing.T) {
	env := newRouterEnv(t, nil)
	dealerToken := env.bearerToken(t, "user-dealer", "dealer@example.com", false)

	created := env.do(t, http.MethodPost, "/listings", dealerToken, validListingBody())
	var createResponse struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(created.Body.Bytes(), &createResponse); err != nil {
		t.Fatalf("failed to decode create response: %v", err)
	}
	listingID := createResponse.ID

	server := httptest.NewServer(env.handler)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/listings/"+listingID+"/events", http.NoBody)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	response, err := server.Client().Do(request)
	if err != nil {
		t.Fatalf("failed to open event stream: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", response.StatusCode)
	}
	if contentType := response.Header.Get("Content-Type"); !strings.Contains(contentType, "text/event-stream") {
		t.Fatalf("expected event stream content type, got %q", contentType)
	}

	reader := bufio.NewReader(response.Body)
	awaitEvent := func(name string) string {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("stream ended before %q event: %v", name, err)
			}
			if strings.TrimSpace(line) != "event:"+name && strings.TrimSpace(line) != "event: "+name {
				continue
			}
			data, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("missing data line for %q event: %v", name, err)
			}
			return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(data), "data:"))
		}
	}

	initial := awaitEvent(eventComments)
	if initial != "[]" {
		t.Fatalf("expected empty initial snapshot, got %q", initial)
	}

	commented := env.do(t, http.MethodPost, "/listings/"+listingID+"/comments", dealerToken, map[string]any{"text": "fresh tires fitted"})
	if commented.Code != http.StatusCreated {
		t.Fatalf("failed to add comment: %d", commented.Code)
	}

	pushed := awaitEvent(eventComments)
	var comments []commentPayload
	if err := json.Unmarshal([]byte(pushed), &comments); err != nil {
		t.Fatalf("failed to decode pushed snapshot %q: %v", pushed, err)
	}
	if len(comments) != 1 || comments[0].Text != "fresh tires fitted" {
		t.Fatalf("unexpected pushed snapshot %+v", comments)
	}
}

func TestListingEventsUnknownListing(t *testing.T) {
	env := newRouterEnv(t, nil)

	recorder := env.do(t, http.MethodGet, "/listings/missing/events", "", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}
