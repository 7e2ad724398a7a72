package oracle

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrScriptExhausted is returned by a ScriptedClient with no reply left.
var ErrScriptExhausted = errors.New("scripted client has no reply left")

// ScriptedClient replays canned replies. A reply is chosen by the first
// rule whose marker occurs in the prompt; without a match the next queued
// reply is used. It records every prompt. Used for tests, demos and
// offline replays of recorded runs.
type ScriptedClient struct {
	mu      sync.Mutex
	rules   []scriptRule
	queue   []string
	prompts []string
}

type scriptRule struct {
	marker string
	reply  func(prompt string) (string, error)
}

// NewScriptedClient queues replies in order.
func NewScriptedClient(replies ...string) *ScriptedClient {
	return &ScriptedClient{queue: replies}
}

// On answers every prompt containing marker with reply.
func (s *ScriptedClient) On(marker, reply string) *ScriptedClient {
	return s.OnFunc(marker, func(string) (string, error) { return reply, nil })
}

// OnFunc answers every prompt containing marker by calling fn.
func (s *ScriptedClient) OnFunc(marker string, fn func(prompt string) (string, error)) *ScriptedClient {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, scriptRule{marker: marker, reply: fn})
	return s
}

// Generate implements Client.
func (s *ScriptedClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	for _, r := range s.rules {
		if strings.Contains(prompt, r.marker) {
			s.mu.Unlock()
			return r.reply(prompt)
		}
	}
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return "", ErrScriptExhausted
	}
	reply := s.queue[0]
	s.queue = s.queue[1:]
	return reply, nil
}

// Prompts returns the prompts received so far.
func (s *ScriptedClient) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}
