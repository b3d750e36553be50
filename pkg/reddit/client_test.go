package reddit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redwarm/internal/model"
)

func testAccount() *model.Account {
	return &model.Account{
		ID:        "acc-1",
		Username:  "warm_tester",
		Connected: true,
	}
}

func writeActionResponse(w http.ResponseWriter, resp actionResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestPerformAction_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/actions/upvote", r.URL.Path)

		var req actionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acc-1", req.AccountID)
		assert.Equal(t, "upvote", req.Action)

		writeActionResponse(w, actionResponse{Success: true, NewKarma: 42})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.minGap = 0

	result, err := client.PerformAction(context.Background(), testAccount(), model.ActionUpvote)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 42, result.NewKarma)
}

func TestPerformAction_DisconnectedAccountIsPermanent(t *testing.T) {
	client := NewClient("http://unused")

	account := testAccount()
	account.Connected = false

	_, err := client.PerformAction(context.Background(), account, model.ActionUpvote)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestPerformAction_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      *actionResponse
		permanent bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, permanent: true},
		{name: "forbidden", status: http.StatusForbidden, permanent: true},
		{name: "rate limited", status: http.StatusTooManyRequests, permanent: false},
		{name: "upstream error", status: http.StatusInternalServerError, permanent: false},
		{name: "banned", status: http.StatusOK, body: &actionResponse{ErrorCode: "account_banned"}, permanent: true},
		{name: "rejected", status: http.StatusOK, body: &actionResponse{Message: "target gone"}, permanent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.body != nil {
					writeActionResponse(w, *tt.body)
					return
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			client.minGap = 0

			_, err := client.PerformAction(context.Background(), testAccount(), model.ActionComment)
			require.Error(t, err)
			assert.Equal(t, tt.permanent, IsPermanent(err))
		})
	}
}

// Concurrent workers share one client, so pacing has to hold across
// goroutines, not just across sequential calls.
func TestPerformAction_ConcurrentCallsKeepPacingGap(t *testing.T) {
	const minGap = 30 * time.Millisecond

	var (
		arrivalsMu sync.Mutex
		arrivals   []time.Time
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrivalsMu.Lock()
		arrivals = append(arrivals, time.Now())
		arrivalsMu.Unlock()
		writeActionResponse(w, actionResponse{Success: true, NewKarma: 10})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	client.minGap = minGap

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.PerformAction(context.Background(), testAccount(), model.ActionUpvote)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Len(t, arrivals, 4)
	sort.Slice(arrivals, func(i, j int) bool { return arrivals[i].Before(arrivals[j]) })
	for i := 1; i < len(arrivals); i++ {
		gap := arrivals[i].Sub(arrivals[i-1])
		assert.GreaterOrEqual(t, gap, minGap-10*time.Millisecond,
			"call %d arrived %v after the previous one", i, gap)
	}
}
