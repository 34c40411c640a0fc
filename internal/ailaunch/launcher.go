// Package ailaunch implements the one-shot trigger that tells a sibling
// AI service to connect as a client using an AI-designated key. It is
// an external collaborator: this package only owns the trigger
// interface, not the AI's own play policy.
package ailaunch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// AISleep is the backoff between retry attempts when the AI service is
// unreachable and the caller has not requested JustOnce semantics.
const AISleep = 2 * time.Second

// KeyPair is the authorization the AI service needs to join a game as
// one color.
type KeyPair struct {
	PlayerKey string
	AISecret  string
}

// PreviousSession is the optional reconnection hint: the launcher
// re-contacts the AI service only when the game is still live and the
// opponent is still connected; otherwise it returns without a request.
type PreviousSession struct {
	GameComplete      bool
	OpponentConnected bool
}

// ShouldRelaunch reports whether a PreviousSession hint indicates the
// AI should still be contacted. A nil hint always launches. The AI
// needs to be re-contacted only when it dropped mid-game: the game
// isn't complete and its opponent is still connected waiting for it.
func (p *PreviousSession) ShouldRelaunch() bool {
	if p == nil {
		return true
	}
	return !p.GameComplete && p.OpponentConnected
}

// StartAIError is returned by Launch when JustOnce is set and the
// single attempt failed.
type StartAIError struct {
	Err error
}

func (e *StartAIError) Error() string { return fmt.Sprintf("ailaunch: starting AI: %v", e.Err) }
func (e *StartAIError) Unwrap() error { return e.Err }

// Launcher POSTs a KeyPair to the AI service's /start endpoint,
// bootstrapping a CSRF cookie on first use. The bootstrap is guarded by
// a mutex scoped to this struct, replacing the source's global lazy
// CSRF state: only one caller fetches the token, the rest reuse it.
type Launcher struct {
	baseURL    string
	httpClient *http.Client

	csrfMu    sync.Mutex
	csrfToken string
}

// New constructs a Launcher with no I/O performed yet; the CSRF
// bootstrap happens lazily on the first Launch call.
func New(baseURL string, httpClient *http.Client) *Launcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Launcher{baseURL: baseURL, httpClient: httpClient}
}

// Launch tells the AI service to join as kp's color. If justOnce is
// set, a single failed attempt returns a *StartAIError; otherwise it
// retries forever with AISleep backoff. prev, if non-nil, may suppress
// the call entirely on a reconnection path.
func (l *Launcher) Launch(ctx context.Context, kp KeyPair, justOnce bool, prev *PreviousSession) error {
	if !prev.ShouldRelaunch() {
		return nil
	}

	for {
		err := l.attempt(ctx, kp)
		if err == nil {
			return nil
		}
		if justOnce {
			return &StartAIError{Err: err}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(AISleep):
		}
	}
}

func (l *Launcher) attempt(ctx context.Context, kp KeyPair) error {
	token, err := l.csrfBootstrap(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(struct {
		PlayerKey string `json:"player_key"`
		AISecret  string `json:"ai_secret"`
	}{kp.PlayerKey, kp.AISecret})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/start", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CSRF-Token", token)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("ailaunch: /start returned %s", resp.Status)
	}
	return nil
}

// csrfBootstrap acquires the CSRF token once per process lifetime,
// shared by every subsequent Launch call. The mutex is held across the
// fetch so concurrent launches can't race it; a failed bootstrap is
// retried on the next call rather than memoized as a permanent error,
// since it's usually caused by a transient AI-service outage.
func (l *Launcher) csrfBootstrap(ctx context.Context) (string, error) {
	l.csrfMu.Lock()
	defer l.csrfMu.Unlock()
	if l.csrfToken != "" {
		return l.csrfToken, nil
	}

	token, err := l.fetchCSRF(ctx)
	if err != nil {
		return "", err
	}
	l.csrfToken = token
	return token, nil
}

func (l *Launcher) fetchCSRF(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/csrf", nil)
	if err != nil {
		return "", err
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	for _, c := range resp.Cookies() {
		if c.Name == "csrftoken" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("ailaunch: no csrftoken cookie in /csrf response")
}
