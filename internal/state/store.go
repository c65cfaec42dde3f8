// Package state holds the cross-panel session state: the active
// profile, the rig status readback, and the UI flags. Mutations happen
// under one lock; observers are notified outside it.
package state

import (
	"sync"
)

// idleStatus is the keep-alive the receiver sends between reports. It
// carries no information and never replaces the last real status.
const idleStatus = "\n T  "

// RigStatus is the last meaningful readback from the receiver.
type RigStatus struct {
	Message     string  `json:"message"`
	FrequencyHz float64 `json:"frequency_hz"`
}

// Flags are the UI visibility and session toggles.
type Flags struct {
	CaptureVisible bool `json:"capture_visible"`
	RTCActive      bool `json:"rtc_active"`
}

// Store is the reactive session state container. Safe for concurrent
// use.
type Store struct {
	mu          sync.Mutex
	profile     string
	rig         RigStatus
	flags       Flags
	onRigChange []func(RigStatus)
}

func New() *Store {
	return &Store{}
}

func (s *Store) Profile() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Store) SetProfile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = name
}

// SetStatusMessage updates the rig status message. Duplicates of the
// current message and the idle keep-alive are ignored.
func (s *Store) SetStatusMessage(msg string) {
	if msg == idleStatus {
		return
	}

	s.mu.Lock()
	if msg == s.rig.Message {
		s.mu.Unlock()
		return
	}
	s.rig.Message = msg
	rig := s.rig
	subs := s.rigSubscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(rig)
	}
}

// SetFrequency records the frequency last commanded or reported, in Hz.
func (s *Store) SetFrequency(hz float64) {
	s.mu.Lock()
	if hz == s.rig.FrequencyHz {
		s.mu.Unlock()
		return
	}
	s.rig.FrequencyHz = hz
	rig := s.rig
	subs := s.rigSubscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(rig)
	}
}

func (s *Store) RigStatus() RigStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rig
}

// OnRigChange registers a callback invoked after every rig status
// change that is not filtered out.
func (s *Store) OnRigChange(fn func(RigStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRigChange = append(s.onRigChange, fn)
}

// rigSubscribers must be called with the lock held.
func (s *Store) rigSubscribers() []func(RigStatus) {
	subs := make([]func(RigStatus), len(s.onRigChange))
	copy(subs, s.onRigChange)
	return subs
}

func (s *Store) Flags() Flags {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags
}

func (s *Store) SetCaptureVisible(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags.CaptureVisible = v
}

func (s *Store) SetRTCActive(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags.RTCActive = v
}
