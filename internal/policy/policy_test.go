package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingModule records which hooks were invoked and answers with
// configured results.
type recordingModule struct {
	pre      Progress
	post     Progress
	warnErr  error
	resetErr error

	preCalls   []TimerInfo
	postCalls  []TimerInfo
	warnCalls  []error
	resetCalls int
}

func (m *recordingModule) PreTimer(info TimerInfo) (Progress, error) {
	m.preCalls = append(m.preCalls, info)
	return m.pre, nil
}

func (m *recordingModule) PostTimer(info TimerInfo) (Progress, error) {
	m.postCalls = append(m.postCalls, info)
	return m.post, nil
}

func (m *recordingModule) Warning(err error) error {
	m.warnCalls = append(m.warnCalls, err)
	return m.warnErr
}

func (m *recordingModule) Reset() error {
	m.resetCalls++
	return m.resetErr
}

func TestChain_ShortCircuitsPreTimer(t *testing.T) {
	info := TimerInfo{Index: 1, Length: 3}

	for _, blocking := range []Progress{Abort, Stop} {
		first := &recordingModule{pre: blocking}
		second := &recordingModule{pre: Continue}
		chain := Chain(first, second)

		progress, err := chain.PreTimer(info)
		require.NoError(t, err)
		assert.Equal(t, blocking, progress, "composite must return the first non-Continue result unchanged")
		assert.Empty(t, second.preCalls, "second module must not be invoked after %v", blocking)
	}
}

func TestChain_ContinuePassesThrough(t *testing.T) {
	info := TimerInfo{Index: 0, Length: 1}
	first := &recordingModule{pre: Continue, post: Continue}
	second := &recordingModule{pre: Abort, post: Stop}
	chain := Chain(first, second)

	progress, err := chain.PreTimer(info)
	require.NoError(t, err)
	assert.Equal(t, Abort, progress)
	require.Len(t, second.preCalls, 1)
	assert.Equal(t, info, second.preCalls[0])

	progress, err = chain.PostTimer(info)
	require.NoError(t, err)
	assert.Equal(t, Stop, progress)
}

func TestChain_WarningReachesBoth(t *testing.T) {
	boom := errors.New("boom")
	first := &recordingModule{warnErr: errors.New("escalated")}
	second := &recordingModule{}
	chain := Chain(first, second)

	err := chain.Warning(boom)
	require.EqualError(t, err, "escalated")
	assert.Len(t, first.warnCalls, 1)
	require.Len(t, second.warnCalls, 1, "a failing first module must not starve the second of the warning")
	assert.Equal(t, boom, second.warnCalls[0])
}

func TestChain_ResetReachesBothInOrder(t *testing.T) {
	first := &recordingModule{}
	second := &recordingModule{}
	chain := Chain(first, second)

	require.NoError(t, chain.Reset())
	assert.Equal(t, 1, first.resetCalls)
	assert.Equal(t, 1, second.resetCalls)
}

func TestModules_ShortCircuitCost(t *testing.T) {
	// With the second of four modules aborting, modules three and four
	// must never be consulted.
	mods := []*recordingModule{
		{pre: Continue}, {pre: Abort}, {pre: Continue}, {pre: Continue},
	}
	composite := make(Modules, len(mods))
	for i, m := range mods {
		composite[i] = m
	}

	progress, err := composite.PreTimer(TimerInfo{Index: 0, Length: 1})
	require.NoError(t, err)
	assert.Equal(t, Abort, progress)
	assert.Len(t, mods[0].preCalls, 1)
	assert.Len(t, mods[1].preCalls, 1)
	assert.Empty(t, mods[2].preCalls)
	assert.Empty(t, mods[3].preCalls)
}

func TestModules_WarningDeliveredToAll(t *testing.T) {
	boom := errors.New("boom")
	mods := []*recordingModule{{}, {warnErr: errors.New("first failure")}, {}}
	composite := make(Modules, len(mods))
	for i, m := range mods {
		composite[i] = m
	}

	err := composite.Warning(boom)
	require.EqualError(t, err, "first failure")
	for i, m := range mods {
		assert.Len(t, m.warnCalls, 1, "module %d", i)
	}
}

func TestModules_ResetReachesAllOnFailure(t *testing.T) {
	mods := []*recordingModule{{resetErr: errors.New("cache stuck")}, {}}
	composite := Modules{mods[0], mods[1]}

	err := composite.Reset()
	require.EqualError(t, err, "cache stuck")
	assert.Equal(t, 1, mods[0].resetCalls)
	assert.Equal(t, 1, mods[1].resetCalls)
}

func TestModules_EmptyPermitsEverything(t *testing.T) {
	var composite Modules
	progress, err := composite.PreTimer(TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, Continue, progress)
	require.NoError(t, composite.Warning(errors.New("ignored")))
	require.NoError(t, composite.Reset())
}

func TestNull_SwallowsWarnings(t *testing.T) {
	var null Null
	progress, err := null.PreTimer(TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, Continue, progress)
	assert.NoError(t, null.Warning(errors.New("logged, not fatal")))
}

func TestStopAt_Completion(t *testing.T) {
	stop := StopAtCompletion()

	progress, err := stop.PostTimer(TimerInfo{Index: 0, Length: 3})
	require.NoError(t, err)
	assert.Equal(t, Continue, progress)

	progress, err = stop.PostTimer(TimerInfo{Index: 2, Length: 3})
	require.NoError(t, err)
	assert.Equal(t, Stop, progress)
}

func TestStopAt_Index(t *testing.T) {
	stop := NewStopAt(1)

	progress, err := stop.PostTimer(TimerInfo{Index: 0, Length: 3})
	require.NoError(t, err)
	assert.Equal(t, Continue, progress)

	progress, err = stop.PostTimer(TimerInfo{Index: 1, Length: 3})
	require.NoError(t, err)
	assert.Equal(t, Stop, progress)
}

func TestNotWhenFullscreen_CachesUntilReset(t *testing.T) {
	queries := 0
	fullscreen := true
	mod := NewNotWhenFullscreen(func() (bool, error) {
		queries++
		return fullscreen, nil
	})

	progress, err := mod.PreTimer(TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, Abort, progress)

	// Second check within the same idle cycle hits the cache.
	_, err = mod.PreTimer(TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, 1, queries)

	fullscreen = false
	require.NoError(t, mod.Reset())
	progress, err = mod.PreTimer(TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, Continue, progress)
	assert.Equal(t, 2, queries)
}

func TestNotWhenAudio_ProbesEveryCheck(t *testing.T) {
	playing := true
	probes := 0
	mod := NewNotWhenAudio(func() (bool, error) {
		probes++
		return playing, nil
	})

	progress, err := mod.PreTimer(TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, Abort, progress)

	playing = false
	progress, err = mod.PreTimer(TimerInfo{})
	require.NoError(t, err)
	assert.Equal(t, Continue, progress)
	assert.Equal(t, 2, probes, "audio state changes without user input, no caching allowed")
}

func TestParseSinkInputs(t *testing.T) {
	corked := "Sink Input #72\n\tDriver: protocol-native.c\n\tCorked: yes\n"
	running := "Sink Input #73\n\tDriver: protocol-native.c\n\tCorked: no\n"

	assert.False(t, parseSinkInputs(""))
	assert.False(t, parseSinkInputs(corked))
	assert.True(t, parseSinkInputs(corked+running))
}
