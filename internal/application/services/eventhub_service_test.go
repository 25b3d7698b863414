package services

import (
	"testing"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogForwardsWithIdentity(t *testing.T) {
	f := newFixture()
	rt := f.open(true, "https://example.com/search", false)

	rt.Hub.Log("SearchSubmitted", events.NewProperties("query", "repo:x"), events.NewProperties("length", 6))

	envs := f.recorder.Envelopes()
	require.Len(t, envs, 1)
	env := envs[0]
	assert.Equal(t, events.KindAction, env.Kind)
	assert.Equal(t, "SearchSubmitted", env.Record.Label)
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, wednesday, env.Timestamp)
	assert.Equal(t, "https://example.com/search", env.URL)
	assert.Len(t, env.UserAgentHash, 32)

	assert.Equal(t, rt.Identity.ID, env.Identity.AnonymousID)
	assert.Equal(t, "2024-04-29", env.Identity.CohortID)
	assert.Equal(t, rt.Identity.ID, env.Identity.DeviceSessionID)
	assert.Equal(t, "https://referrer.example/", env.Identity.OriginalReferrer)
}

func TestLogRenewsSession(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/", false)
	_, ok := f.records.Get(identity.DeviceSessionIDKey)
	require.False(t, ok)

	rt.Hub.Log("Clicked", nil, nil)

	id, ok := f.records.Get(identity.DeviceSessionIDKey)
	require.True(t, ok)
	assert.Equal(t, rt.Identity.ID, id)
}

func TestListenersRunInOrderBeforeForwarding(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/", false)

	var calls []string
	rt.Hub.AddListener(func(label string) {
		assert.Empty(t, f.recorder.Envelopes())
		calls = append(calls, "first:"+label)
	})
	rt.Hub.AddListener(func(label string) { calls = append(calls, "second:"+label) })

	rt.Hub.Log("Clicked", nil, nil)

	assert.Equal(t, []string{"first:Clicked", "second:Clicked"}, calls)
	assert.Len(t, f.recorder.Envelopes(), 1)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/", false)

	calls := 0
	unsubscribe := rt.Hub.AddListener(func(string) { calls++ })
	rt.Hub.AddListener(func(string) {})
	assert.Equal(t, 2, rt.Hub.ListenerCount())

	unsubscribe()
	rt.Hub.Log("Clicked", nil, nil)
	assert.NotPanics(t, unsubscribe)

	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, rt.Hub.ListenerCount())
}

func TestListenerMayUnsubscribeItself(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/", false)

	calls := 0
	var unsubscribe func()
	unsubscribe = rt.Hub.AddListener(func(string) {
		calls++
		unsubscribe()
	})

	rt.Hub.Log("One", nil, nil)
	rt.Hub.Log("Two", nil, nil)
	assert.Equal(t, 1, calls)
}

func TestListenerPanicPropagates(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/", false)
	rt.Hub.AddListener(func(string) { panic("listener failed") })

	assert.PanicsWithValue(t, "listener failed", func() {
		rt.Hub.Log("Clicked", nil, nil)
	})
	assert.Empty(t, f.recorder.Envelopes())
}

func TestAutomatedLogNotifiesButDoesNotForward(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/", true)

	var heard []string
	rt.Hub.AddListener(func(label string) { heard = append(heard, label) })

	rt.Hub.Log("Clicked", nil, nil)

	assert.Equal(t, []string{"Clicked"}, heard)
	assert.Empty(t, f.recorder.Envelopes())
	_, renewed := f.records.Get(identity.DeviceSessionIDKey)
	assert.True(t, renewed)
}

func TestEmptyLabelNotifiesButDoesNotForward(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/", false)

	var heard []string
	rt.Hub.AddListener(func(label string) { heard = append(heard, label) })

	rt.Hub.Log("", nil, nil)

	assert.Equal(t, []string{""}, heard)
	assert.Empty(t, f.recorder.Envelopes())
}

func TestAutomatedPageViewShortCircuitsEarly(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/?signup=github", true)

	heard := 0
	rt.Hub.AddListener(func(string) { heard++ })

	rt.Hub.LogPageView("Home", nil, true)
	rt.Hub.LogViewEvent("Home", nil, true)

	assert.Equal(t, 0, heard)
	assert.Empty(t, f.recorder.Envelopes())
	_, renewed := f.records.Get(identity.DeviceSessionIDKey)
	assert.False(t, renewed)
	assert.False(t, rt.Location.Replaced())
}

func TestEmptyPageViewNameIsIgnored(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/", false)

	rt.Hub.LogPageView("", nil, true)

	assert.Empty(t, f.recorder.Envelopes())
}

func TestPageViewNaming(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/", false)

	rt.Hub.LogPageView("Home", events.NewProperties("section", "top"), true)
	rt.Hub.LogViewEvent("Settings", nil, false)

	envs := f.recorder.Envelopes()
	require.Len(t, envs, 2)
	assert.Equal(t, "HomeViewed", envs[0].Record.Label)
	assert.Equal(t, events.KindPageView, envs[0].Kind)
	assert.True(t, envs[0].AsActiveUser)
	assert.Nil(t, envs[0].Record.PublicArgument)
	assert.Equal(t, "ViewSettings", envs[1].Record.Label)
	assert.False(t, envs[1].AsActiveUser)
}

func TestSignupHandledOncePerPage(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/x?signup=github", false)

	var heard []string
	rt.Hub.AddListener(func(label string) { heard = append(heard, label) })

	rt.Hub.LogPageView("Home", nil, true)
	rt.Hub.LogPageView("Home", nil, true)

	assert.Equal(t, []string{"HomeViewed", events.SignUpCompleted, "HomeViewed"}, heard)
	assert.Equal(t, []string{"HomeViewed", events.SignUpCompleted, "HomeViewed"}, f.recorder.Labels())

	signup := f.recorder.Envelopes()[1]
	v, _ := signup.Record.Properties.Get("serviceType")
	assert.Equal(t, "github", v)
	v, _ = signup.Record.PublicArgument.Get("serviceType")
	assert.Equal(t, "github", v)

	assert.Equal(t, "https://example.com/x", rt.Location.Href())
	assert.NotContains(t, rt.Location.Href(), "signup")
}

func TestSignupLatchIsPerPage(t *testing.T) {
	f := newFixture()
	f.open(false, "https://example.com/x?signup=github", false).Hub.LogPageView("Home", nil, true)
	f.open(false, "https://example.com/x?signup=github", false).Hub.LogPageView("Home", nil, true)

	count := 0
	for _, label := range f.recorder.Labels() {
		if label == events.SignUpCompleted {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestPageViewEmitsUTMEvent(t *testing.T) {
	f := newFixture()
	rt := f.open(false, "https://example.com/x?utm_source=saved-search-slack", false)

	rt.Hub.LogPageView("Search", nil, true)

	assert.Equal(t, []string{events.SavedSearchSlackClicked, "SearchViewed"}, f.recorder.Labels())
	pageView := f.recorder.Envelopes()[1]
	assert.Equal(t, "https://example.com/x?utm_source=saved-search-slack", pageView.URL)
	v, _ := pageView.URLParameters.Get("utm_source")
	assert.Equal(t, "saved-search-slack", v)

	// utm_source was stripped after the first page view.
	rt.Hub.LogPageView("Search", nil, true)
	assert.Equal(t, []string{events.SavedSearchSlackClicked, "SearchViewed", "SearchViewed"}, f.recorder.Labels())
	assert.Nil(t, f.recorder.Envelopes()[2].URLParameters)
}
