package wizard

import (
	"sync"

	"kinobot/internal/storage"
)

type Flow string

const (
	AddMovie    Flow = "add_movie"
	AddSeries   Flow = "add_series"
	DeleteEntry Flow = "delete_entry"
	Broadcast   Flow = "broadcast"
)

type Step string

const (
	WaitingVideo        Step = "waiting_video"
	WaitingTitle        Step = "waiting_title"
	WaitingSeriesTitle  Step = "waiting_series_title"
	WaitingEpisodeVideo Step = "waiting_episode_video"
	WaitingMoreEpisodes Step = "waiting_more_episodes"
	WaitingCode         Step = "waiting_code"
	WaitingPayload      Step = "waiting_payload"
)

// Expects says which kind of input moves a step forward.
type Expects int

const (
	ExpectsText Expects = 1 << iota
	ExpectsVideo
	ExpectsPhoto
)

func (s Step) Expects() Expects {
	switch s {
	case WaitingVideo, WaitingEpisodeVideo:
		return ExpectsVideo
	case WaitingPayload:
		return ExpectsText | ExpectsVideo | ExpectsPhoto
	default:
		return ExpectsText
	}
}

type Media struct {
	FileID string
	Meta   storage.MediaMeta
}

// State is one admin's in-progress flow.
type State struct {
	Flow Flow
	Step Step

	Pending     Media
	SeriesTitle string
	Episodes    []Media
}

// Start returns the initial state of a flow.
func Start(f Flow) State {
	switch f {
	case AddMovie:
		return State{Flow: f, Step: WaitingVideo}
	case AddSeries:
		return State{Flow: f, Step: WaitingSeriesTitle}
	case DeleteEntry:
		return State{Flow: f, Step: WaitingCode}
	default:
		return State{Flow: Broadcast, Step: WaitingPayload}
	}
}

// Sessions holds at most one State per chat. Set replaces whatever was there.
type Sessions struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewSessions() *Sessions {
	return &Sessions{states: map[int64]State{}}
}

func (s *Sessions) Get(chatID int64) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[chatID]
	if ok {
		st.Episodes = append([]Media(nil), st.Episodes...)
	}
	return st, ok
}

func (s *Sessions) Set(chatID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[chatID] = st
}

func (s *Sessions) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, chatID)
}
