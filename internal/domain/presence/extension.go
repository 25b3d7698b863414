// Package presence describes the browser extension presence signal and the
// compatibility shims needed to read it.
package presence

import (
	"errors"
	"strings"
)

// Marker and event contract shared with the browser extension.
const (
	MarkerSelector     = "#tractstack-app-background"
	PlatformAttribute  = "data-platform"
	VersionAttribute   = "data-version"
	RegistrationEvent  = "tractstack:browser-extension-registration"
	FirefoxPlatform    = "firefox-extension"
	SandboxedVersion   = "unknown due to security policy"
	permissionDeniedTx = "permission denied to access property"
)

// ErrPermissionDenied is raised when a sandboxed event detail refuses property access.
var ErrPermissionDenied = errors.New(permissionDeniedTx)

// ExtensionInfo identifies a connected browser extension
type ExtensionInfo struct {
	Platform string `json:"platform"`
	Version  string `json:"version"`
}

// EventDetail is the payload of a registration event. Property reads may fail
// when the payload crossed a security sandbox.
type EventDetail interface {
	Platform() (string, error)
	Version() (string, error)
}

// SandboxShim converts a known sandbox read failure into a usable value.
type SandboxShim interface {
	Recover(err error) (ExtensionInfo, bool)
}

// NoShim recovers nothing; every read error propagates.
type NoShim struct{}

func (NoShim) Recover(error) (ExtensionInfo, bool) { return ExtensionInfo{}, false }

// FirefoxShim handles Firefox content scripts, whose event details throw a
// permission error when the page reads their properties.
type FirefoxShim struct{}

func (FirefoxShim) Recover(err error) (ExtensionInfo, bool) {
	if err == nil {
		return ExtensionInfo{}, false
	}
	if errors.Is(err, ErrPermissionDenied) || strings.Contains(strings.ToLower(err.Error()), permissionDeniedTx) {
		return ExtensionInfo{Platform: FirefoxPlatform, Version: SandboxedVersion}, true
	}
	return ExtensionInfo{}, false
}

// ShimFor picks the shim for a user agent. Only Firefox needs one.
func ShimFor(userAgent string) SandboxShim {
	if strings.Contains(userAgent, "Firefox/") {
		return FirefoxShim{}
	}
	return NoShim{}
}

// ReadDetail extracts extension info from an event detail, consulting shim
// only when a property read fails.
func ReadDetail(detail EventDetail, shim SandboxShim) (ExtensionInfo, error) {
	platform, err := detail.Platform()
	if err != nil {
		return recoverOr(err, shim)
	}
	version, err := detail.Version()
	if err != nil {
		return recoverOr(err, shim)
	}
	return ExtensionInfo{Platform: platform, Version: version}, nil
}

func recoverOr(err error, shim SandboxShim) (ExtensionInfo, error) {
	if shim == nil {
		shim = NoShim{}
	}
	if info, ok := shim.Recover(err); ok {
		return info, nil
	}
	return ExtensionInfo{}, err
}
