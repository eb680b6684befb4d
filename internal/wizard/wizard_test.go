package wizard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionsReplaceOnNewFlow(t *testing.T) {
	s := NewSessions()

	st := Start(AddSeries)
	st.SeriesTitle = "Kurtlar vadisi"
	st.Episodes = []Media{{FileID: "a"}}
	st.Step = WaitingMoreEpisodes
	s.Set(1, st)

	s.Set(1, Start(AddMovie))
	got, ok := s.Get(1)
	require.True(t, ok)
	require.Equal(t, AddMovie, got.Flow)
	require.Equal(t, WaitingVideo, got.Step)
	require.Empty(t, got.SeriesTitle)
	require.Empty(t, got.Episodes)
}

func TestSessionsClear(t *testing.T) {
	s := NewSessions()
	s.Set(1, Start(DeleteEntry))
	s.Set(2, Start(Broadcast))

	s.Clear(1)
	_, ok := s.Get(1)
	require.False(t, ok)
	_, ok = s.Get(2)
	require.True(t, ok)
}

func TestSessionsGetCopiesEpisodes(t *testing.T) {
	s := NewSessions()
	st := Start(AddSeries)
	st.Episodes = []Media{{FileID: "a"}}
	s.Set(1, st)

	got, _ := s.Get(1)
	got.Episodes[0].FileID = "changed"

	again, _ := s.Get(1)
	require.Equal(t, "a", again.Episodes[0].FileID)
}

func TestStepExpects(t *testing.T) {
	require.Equal(t, ExpectsVideo, Start(AddMovie).Step.Expects())
	require.Equal(t, ExpectsText, WaitingTitle.Expects())
	require.Equal(t, ExpectsText, Start(DeleteEntry).Step.Expects())
	require.Equal(t, ExpectsVideo, WaitingEpisodeVideo.Expects())
	require.NotZero(t, Start(Broadcast).Step.Expects()&ExpectsPhoto)
}
