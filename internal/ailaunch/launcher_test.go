package ailaunch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAIService(t *testing.T, startStatus int) (*httptest.Server, *int32) {
	t.Helper()
	var startCalls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/csrf", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "test-token"})
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&startCalls, 1)
		if r.Header.Get("X-CSRF-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(startStatus)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &startCalls
}

func TestLaunch_SuccessPostsPlayerKeyAndSecret(t *testing.T) {
	srv, calls := newAIService(t, http.StatusOK)
	l := New(srv.URL, srv.Client())

	err := l.Launch(context.Background(), KeyPair{PlayerKey: "key1234567", AISecret: "sec1234567"}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestLaunch_JustOnceFailurePropagatesStartAIError(t *testing.T) {
	srv, _ := newAIService(t, http.StatusInternalServerError)
	l := New(srv.URL, srv.Client())

	err := l.Launch(context.Background(), KeyPair{PlayerKey: "key1234567"}, true, nil)
	require.Error(t, err)
	var startErr *StartAIError
	assert.ErrorAs(t, err, &startErr)
}

func TestLaunch_CSRFBootstrapHappensOnce(t *testing.T) {
	srv, calls := newAIService(t, http.StatusOK)
	l := New(srv.URL, srv.Client())

	require.NoError(t, l.Launch(context.Background(), KeyPair{PlayerKey: "key1234567"}, true, nil))
	require.NoError(t, l.Launch(context.Background(), KeyPair{PlayerKey: "key7654321"}, true, nil))

	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
	assert.Equal(t, "test-token", l.csrfToken)
}

func TestLaunch_PreviousSessionRelaunchesWhenAIDroppedMidGame(t *testing.T) {
	srv, calls := newAIService(t, http.StatusOK)
	l := New(srv.URL, srv.Client())

	prev := &PreviousSession{GameComplete: false, OpponentConnected: true}
	err := l.Launch(context.Background(), KeyPair{PlayerKey: "key1234567"}, true, prev)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "a live game whose opponent is still connected needs the AI reconnected")
}

func TestLaunch_PreviousSessionSuppressesRelaunchWhenOpponentGone(t *testing.T) {
	srv, calls := newAIService(t, http.StatusOK)
	l := New(srv.URL, srv.Client())

	prev := &PreviousSession{GameComplete: false, OpponentConnected: false}
	err := l.Launch(context.Background(), KeyPair{PlayerKey: "key1234567"}, true, prev)
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls), "no connected opponent waiting means there's no need to reconnect the AI")
}

func TestLaunch_PreviousSessionSuppressesRelaunchWhenGameComplete(t *testing.T) {
	srv, calls := newAIService(t, http.StatusOK)
	l := New(srv.URL, srv.Client())

	prev := &PreviousSession{GameComplete: true, OpponentConnected: true}
	err := l.Launch(context.Background(), KeyPair{PlayerKey: "key1234567"}, true, prev)
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls), "a finished game never needs its AI reconnected")
}

func TestShouldRelaunch_NilHintAlwaysLaunches(t *testing.T) {
	var prev *PreviousSession
	assert.True(t, prev.ShouldRelaunch())
}

func TestShouldRelaunch_TruthTable(t *testing.T) {
	cases := []struct {
		name     string
		complete bool
		opponent bool
		want     bool
	}{
		{"mid-game opponent connected needs reconnect", false, true, true},
		{"mid-game opponent gone needs nothing", false, false, false},
		{"complete game with opponent connected needs nothing", true, true, false},
		{"complete game with opponent gone needs nothing", true, false, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			prev := &PreviousSession{GameComplete: c.complete, OpponentConnected: c.opponent}
			assert.Equal(t, c.want, prev.ShouldRelaunch())
		})
	}
}
