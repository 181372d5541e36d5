// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package measurement

import "sync"

// Estimates is the live output of a running session.
type Estimates struct {
	SessionID      string  `json:"session_id"`
	ElapsedSeconds float64 `json:"time_s"`
	Algorithm1     float64 `json:"algorithm1_ewma"`
	Algorithm2     float64 `json:"algorithm2_fusion"`
}

// broadcaster fans estimates out to subscribers. Every channel holds at most
// one value; a slow reader only ever sees the newest estimate.
type broadcaster struct {
	mu   sync.Mutex
	subs map[chan Estimates]struct{}
}

func (b *broadcaster) subscribe() (<-chan Estimates, func()) {
	ch := make(chan Estimates, 1)
	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[chan Estimates]struct{})
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *broadcaster) publish(e Estimates) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		// replace the stale value
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}
