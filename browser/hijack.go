package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// configToProto maps BrowserConfig.BlockedResourceTypes names to protocol types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// adDomains are ad and tracking hosts blocked when BlockAds is set.
// Subdomains match through isAdDomain.
var adDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"adnxs.com":             {},
	"adsrvr.org":            {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"outbrain.com":          {},
	"taboola.com":           {},
	"pubmatic.com":          {},
	"rubiconproject.com":    {},
	"openx.net":             {},
	"casalemedia.com":       {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"moatads.com":           {},
	"hotjar.com":            {},
	"demdex.net":            {},
	"bluekai.com":           {},
	"krxd.net":              {},
	"ads-twitter.com":       {},
	"consensu.org":          {},
}

// isAdDomain reports whether host or any parent domain is blocklisted.
func isAdDomain(host string) bool {
	host = strings.ToLower(host)
	if _, ok := adDomains[host]; ok {
		return true
	}
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
		if _, ok := adDomains[host]; ok {
			return true
		}
	}
	return false
}

// setupHijack routes every request of page through a hijack handler that
// fails blocked resource types and ad hosts. It returns nil when nothing is
// configured to be blocked. The caller stops the router before closing page.
//
// The Fetch domain used here conflicts with Network response events on
// recent Chromium, so observed sessions never get a router.
func setupHijack(page *rod.Page, blockedTypes []string, blockAds bool) *rod.HijackRouter {
	blocked := resourceTypeSet(blockedTypes)
	if len(blocked) == 0 && !blockAds {
		return nil
	}

	router := page.HijackRequests()
	_ = router.Add("*", "", func(h *rod.Hijack) {
		if shouldBlock(blocked, blockAds, h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})

	go router.Run()
	return router
}

// resourceTypeSet maps configured names to protocol resource types. Unknown
// names are ignored.
func resourceTypeSet(names []string) map[proto.NetworkResourceType]struct{} {
	set := make(map[proto.NetworkResourceType]struct{}, len(names))
	for _, name := range names {
		if rt, ok := configToProto[name]; ok {
			set[rt] = struct{}{}
		}
	}
	return set
}

func shouldBlock(blocked map[proto.NetworkResourceType]struct{}, blockAds bool, rt proto.NetworkResourceType, rawURL string) bool {
	if _, ok := blocked[rt]; ok {
		return true
	}
	return blockAds && isAdDomain(hostOf(rawURL))
}
