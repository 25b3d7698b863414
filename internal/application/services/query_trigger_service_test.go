package services

import (
	"testing"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/page"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loggedEvent struct {
	label  string
	props  *events.Properties
	public *events.Properties
}

type eventLog struct {
	entries []loggedEvent
}

func (l *eventLog) Log(label string, props, public *events.Properties) {
	l.entries = append(l.entries, loggedEvent{label: label, props: props, public: public})
}

func (l *eventLog) labels() []string {
	var out []string
	for _, e := range l.entries {
		out = append(out, e.label)
	}
	return out
}

func TestPageViewParametersUTMTable(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"saved search email", "utm_source=saved-search-email", []string{events.SavedSearchEmailClicked}},
		{"saved search slack", "utm_source=saved-search-slack", []string{events.SavedSearchSlackClicked}},
		{"code monitoring", "utm_source=code-monitoring-email", []string{events.CodeMonitorEmailLinkClicked}},
		{"hubspot onboarding", "utm_source=hubspot&utm_campaign=cloud-onboarding-email-week-1", []string{events.UTMCampaignLinkClicked}},
		{"hubspot other campaign", "utm_source=hubspot&utm_campaign=newsletter", nil},
		{"code host integration", "utm_source=gitlab-integration", []string{events.UTMCodeHostIntegration}},
		{"firefox extension", "utm_source=firefox-extension", []string{events.UTMCodeHostIntegration}},
		{"vscode signup", "utm_medium=VSCODE&utm_campaign=vsce-sign-up", []string{events.VSCodeSignUpLinkClicked}},
		{"vscode other campaign", "utm_medium=VSCODE&utm_campaign=other", nil},
		{"source wins over medium", "utm_source=saved-search-email&utm_medium=VSCODE&utm_campaign=vsce-sign-up", []string{events.SavedSearchEmailClicked}},
		{"no markers", "q=repo", nil},
	}

	trigger := NewQueryTrigger(logging.NewDiscardLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &eventLog{}
			trigger.PageViewParameters(page.NewLocation("https://example.com/x?"+tt.query, ""), log.Log)
			assert.Equal(t, tt.want, log.labels())
		})
	}
}

func TestPageViewParametersCarriesUTMProps(t *testing.T) {
	trigger := NewQueryTrigger(logging.NewDiscardLogger())
	log := &eventLog{}

	params := trigger.PageViewParameters(page.NewLocation(
		"https://example.com/x?utm_source=chrome-extension&utm_medium=ext&utm_campaign=c1&utm_content=cta&utm_term=go", ""), log.Log)

	assert.Equal(t, []string{"utm_campaign", "utm_source", "utm_medium", "utm_content", "utm_term"}, params.Keys())
	require.Len(t, log.entries, 1)
	entry := log.entries[0]
	v, _ := entry.props.Get("utm_source")
	assert.Equal(t, "chrome-extension", v)
	assert.Equal(t, entry.props.Keys(), entry.public.Keys())
}

func TestPageViewParametersMarkersWithoutProps(t *testing.T) {
	trigger := NewQueryTrigger(logging.NewDiscardLogger())
	log := &eventLog{}

	trigger.PageViewParameters(page.NewLocation("https://example.com/x?utm_source=saved-search-slack", ""), log.Log)

	require.Len(t, log.entries, 1)
	assert.Nil(t, log.entries[0].props)
	assert.Nil(t, log.entries[0].public)
}

func TestHandleQueryEventsSignup(t *testing.T) {
	trigger := NewQueryTrigger(logging.NewDiscardLogger())
	log := &eventLog{}
	location := page.NewLocation("https://example.com/x?signup=github&utm_source=a&utm_term=keep#top", "")

	trigger.HandleQueryEvents(location, log.Log)

	require.Len(t, log.entries, 1)
	assert.Equal(t, events.SignUpCompleted, log.entries[0].label)
	v, _ := log.entries[0].props.Get("serviceType")
	assert.Equal(t, "github", v)
	v, _ = log.entries[0].public.Get("serviceType")
	assert.Equal(t, "github", v)

	assert.Equal(t, "https://example.com/x?utm_term=keep#top", location.Href())
	assert.True(t, location.Replaced())
}

func TestHandleQueryEventsSignupAndSigninBothFire(t *testing.T) {
	trigger := NewQueryTrigger(logging.NewDiscardLogger())
	log := &eventLog{}
	location := page.NewLocation("https://example.com/x?signin=gitlab&signup=github", "")

	trigger.HandleQueryEvents(location, log.Log)

	require.Equal(t, []string{events.SignUpCompleted, events.SignInCompleted}, log.labels())
	v, _ := log.entries[0].props.Get("serviceType")
	assert.Equal(t, "github", v)
	v, _ = log.entries[1].props.Get("serviceType")
	assert.Equal(t, "gitlab", v)
	assert.Equal(t, "https://example.com/x", location.Href())
}

func TestHandleQueryEventsSignin(t *testing.T) {
	trigger := NewQueryTrigger(logging.NewDiscardLogger())
	log := &eventLog{}
	location := page.NewLocation("https://example.com/x?signin=", "")

	trigger.HandleQueryEvents(location, log.Log)

	require.Equal(t, []string{events.SignInCompleted}, log.labels())
	v, _ := log.entries[0].props.Get("serviceType")
	assert.Equal(t, "", v)
	assert.Equal(t, "https://example.com/x", location.Href())
}

func TestHandleQueryEventsNothingToStrip(t *testing.T) {
	trigger := NewQueryTrigger(logging.NewDiscardLogger())
	log := &eventLog{}
	location := page.NewLocation("https://example.com/x?q=1", "")

	trigger.HandleQueryEvents(location, log.Log)

	assert.Empty(t, log.entries)
	assert.False(t, location.Replaced())
}
