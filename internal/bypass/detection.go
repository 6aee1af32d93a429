// Package bypass recognises bot-protection block pages in API responses so a
// failed provider call can be attributed to the edge network that refused it.
package bypass

import (
	"bytes"
	"net/http"
	"strings"
)

// Response is the part of an HTTP reply the detectors inspect.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Detector examines a response to determine if a bot protection mechanism
// blocked or challenged the request.
type Detector func(res Response) (detected bool, source string)

// DefaultDetectors returns the standard list of bot protection detectors.
func DefaultDetectors() []Detector {
	return []Detector{
		detectCloudflare,
		detectAkamai,
		detectDataDome,
		detectPerimeterX,
	}
}

// Detect runs the response through detectors in order and reports the first
// vendor that matched. Successful responses are never reported as blocked.
func Detect(res Response, detectors []Detector) (source string, blocked bool) {
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return "", false
	}
	for _, d := range detectors {
		if detected, src := d(res); detected {
			return src, true
		}
	}
	return "", false
}

// Func adapts Detect with the default detectors to the shape the HTTP client
// accepts as its block detector.
func Func(status int, header http.Header, body []byte) (string, bool) {
	return Detect(Response{StatusCode: status, Header: header, Body: body}, DefaultDetectors())
}

func headerContains(h http.Header, key, substr string) bool {
	return strings.Contains(strings.ToLower(h.Get(key)), substr)
}

func detectCloudflare(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden && res.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if headerContains(res.Header, "Server", "cloudflare") || res.Header.Get("Cf-Mitigated") != "" {
		return true, "Cloudflare"
	}
	for _, sig := range []string{"cf-browser-verification", "cloudflare-nginx", "cf-turnstile", "Attention Required! | Cloudflare"} {
		if bytes.Contains(res.Body, []byte(sig)) {
			return true, "Cloudflare"
		}
	}
	return false, ""
}

func detectAkamai(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if headerContains(res.Header, "Server", "akamai") {
		return true, "Akamai"
	}
	// Generic Akamai block page.
	if bytes.Contains(res.Body, []byte("Reference #")) && bytes.Contains(res.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if headerContains(res.Header, "Server", "datadome") ||
		res.Header.Get("X-DataDome") != "" || res.Header.Get("X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bytes.Contains(res.Body, []byte("geo.captcha-delivery.com")) || bytes.Contains(res.Body, []byte("datadome")) {
		return true, "DataDome"
	}
	return false, ""
}

// detectPerimeterX looks for PerimeterX (HUMAN) signatures.
func detectPerimeterX(res Response) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if res.Header.Get("X-Px-Captcha") != "" {
		return true, "PerimeterX"
	}
	for _, sig := range []string{"client.perimeterx.net", "px-captcha", "_pxBlock"} {
		if bytes.Contains(res.Body, []byte(sig)) {
			return true, "PerimeterX"
		}
	}
	return false, ""
}
