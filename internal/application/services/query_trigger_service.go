package services

import (
	"regexp"

	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/events"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/domain/page"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/tractstack-telemetry/internal/infrastructure/observability/metrics"
)

// LogFunc emits a generic event. The trigger emits through the page's hub.
type LogFunc func(label string, properties, publicArgument *events.Properties)

// Query markers recognised on page URLs
const (
	ParamUTMCampaign = "utm_campaign"
	ParamUTMSource   = "utm_source"
	ParamUTMMedium   = "utm_medium"
	ParamUTMContent  = "utm_content"
	ParamUTMTerm     = "utm_term"
	ParamSignUp      = "signup"
	ParamSignIn      = "signin"
)

// HandledParameters are stripped from the URL once query events have run.
// utm_content and utm_term are read but left in place.
var HandledParameters = []string{ParamUTMCampaign, ParamUTMSource, ParamUTMMedium, ParamSignUp, ParamSignIn}

var cloudOnboardingCampaign = regexp.MustCompile(`^cloud-onboarding-email(.*)$`)

var codeHostIntegrationSources = map[string]bool{
	"safari-extension":        true,
	"firefox-extension":       true,
	"chrome-extension":        true,
	"phabricator-integration": true,
	"bitbucket-integration":   true,
	"gitlab-integration":      true,
}

// QueryTrigger maps URL query markers to semantic events
type QueryTrigger struct {
	logger *logging.ChanneledLogger
}

// NewQueryTrigger creates a new query trigger
func NewQueryTrigger(logger *logging.ChanneledLogger) *QueryTrigger {
	return &QueryTrigger{logger: logger}
}

// PageViewParameters extracts the UTM parameters attached to a page view and
// emits at most one campaign event for them. It runs on every page view.
func (t *QueryTrigger) PageViewParameters(location *page.Location, log LogFunc) *events.Properties {
	q := location.Query()

	utm := events.NewProperties()
	for _, key := range []string{ParamUTMCampaign, ParamUTMSource, ParamUTMMedium, ParamUTMContent, ParamUTMTerm} {
		if v := q.Get(key); v != "" {
			utm.Set(key, v)
		}
	}

	source, medium, campaign := q.Get(ParamUTMSource), q.Get(ParamUTMMedium), q.Get(ParamUTMCampaign)
	switch {
	case source == "saved-search-email":
		t.emit(log, events.SavedSearchEmailClicked, nil)
	case source == "saved-search-slack":
		t.emit(log, events.SavedSearchSlackClicked, nil)
	case source == "code-monitoring-email":
		t.emit(log, events.CodeMonitorEmailLinkClicked, nil)
	case source == "hubspot" && cloudOnboardingCampaign.MatchString(campaign):
		t.emit(log, events.UTMCampaignLinkClicked, utm)
	case codeHostIntegrationSources[source]:
		t.emit(log, events.UTMCodeHostIntegration, utm)
	case medium == "VSCODE" && campaign == "vsce-sign-up":
		t.emit(log, events.VSCodeSignUpLinkClicked, utm)
	}

	return utm
}

// HandleQueryEvents emits the signup and signin completion events named by
// the URL, then strips every handled marker from the location. The two
// markers are independent; a URL carrying both emits both.
func (t *QueryTrigger) HandleQueryEvents(location *page.Location, log LogFunc) {
	q := location.Query()

	if q.Has(ParamSignUp) {
		t.emit(log, events.SignUpCompleted, events.NewProperties("serviceType", q.Get(ParamSignUp)))
	}
	if q.Has(ParamSignIn) {
		t.emit(log, events.SignInCompleted, events.NewProperties("serviceType", q.Get(ParamSignIn)))
	}

	stripped := page.StripParameters(location.Href(), HandledParameters...)
	location.Replace(stripped)
}

// emit sends props as both the private and public payload
func (t *QueryTrigger) emit(log LogFunc, label string, props *events.Properties) {
	metrics.QueryTriggers.WithLabelValues(label).Inc()
	t.logger.Events().Debug("Query marker matched", "label", label)
	log(label, props, props.Clone())
}
