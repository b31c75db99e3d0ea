// Package protection recognizes anti-bot protection vendors from page
// markup and handles in-page reCAPTCHA challenges.
package protection

import (
	"strings"
)

// Vendor identifies a bot-protection system detected on a page.
type Vendor string

const (
	VendorNone       Vendor = ""
	VendorIncapsula  Vendor = "incapsula"
	VendorCloudflare Vendor = "cloudflare"
	VendorDataDome   Vendor = "datadome"
	VendorPerimeterX Vendor = "perimeterx"
	VendorGeneric    Vendor = "generic_antibot"
)

// signatures maps each vendor to the literal markers found in its
// challenge pages. Matching is case-insensitive substring search.
var signatures = map[Vendor][]string{
	VendorIncapsula: {
		"incapsula incident id",
		"_incapsula_resource",
		"visid_incap",
		"incapsula",
	},
	VendorCloudflare: {
		"checking your browser before accessing",
		"cf-browser-verification",
		"cloudflare ray id",
		"attention required! | cloudflare",
		"cf-challenge",
	},
	VendorDataDome: {
		"_dd_s",
		"datadome",
		"dd_cookie",
	},
	VendorPerimeterX: {
		"_pxhd",
		"px-captcha",
		"perimeterx",
	},
	VendorGeneric: {
		"access denied",
		"bot detected",
		"unusual traffic detected",
		"verify you are human",
		"automated access",
		"ddos protection by",
	},
}

// vendorOrder fixes the priority in which vendors are checked so that
// a page matching several signature lists always resolves the same way.
var vendorOrder = []Vendor{
	VendorIncapsula,
	VendorCloudflare,
	VendorDataDome,
	VendorPerimeterX,
	VendorGeneric,
}

// recaptchaMarkers identify a page whose block is specifically a
// reCAPTCHA challenge, which the captcha handler may be able to clear.
var recaptchaMarkers = []string{
	"g-recaptcha",
	"recaptcha",
	"i'm not a robot",
	"not a robot",
}

// Detect matches the page source and title against the vendor
// signature tables in fixed priority order and returns the first hit.
// It is a pure function of its inputs.
func Detect(pageSource, pageTitle string) Vendor {
	haystack := strings.ToLower(pageSource + " " + pageTitle)

	for _, vendor := range vendorOrder {
		for _, sig := range signatures[vendor] {
			if strings.Contains(haystack, sig) {
				return vendor
			}
		}
	}

	return VendorNone
}

// IsRecaptcha reports whether the page carries a reCAPTCHA challenge.
func IsRecaptcha(pageSource, pageTitle string) bool {
	haystack := strings.ToLower(pageSource + " " + pageTitle)
	for _, marker := range recaptchaMarkers {
		if strings.Contains(haystack, marker) {
			return true
		}
	}
	return false
}

// Signatures exposes the vendor table for trace logging and tests.
func Signatures(v Vendor) []string {
	out := make([]string, len(signatures[v]))
	copy(out, signatures[v])
	return out
}

// Vendors returns the fixed priority order.
func Vendors() []Vendor {
	out := make([]Vendor, len(vendorOrder))
	copy(out, vendorOrder)
	return out
}
