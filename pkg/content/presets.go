package content

// Preset is a named, versioned bundle of structural selectors and trigger
// keywords for one boilerplate category. The tables are fixed: changing them
// changes filtering output for every task, so treat edits as format changes.
type Preset struct {
	Name      string
	Selectors []string
	Keywords  []string
}

// navigationSelectors is the priority-ordered (high to low) selector list for
// navigation regions. The content filter removes every match; the navigation
// synthesizer harvests anchors from the same list before removal runs.
var navigationSelectors = []string{
	`nav[role="navigation"]`,
	"nav.main-nav",
	"nav.primary-nav",
	"nav.site-nav",
	"nav.header-nav",
	"nav.top-nav",
	".navbar",
	".navigation",
	".nav-menu",
	".main-navigation",
	"nav",
	".nav",
	".menu",
	`[role="navigation"]`,
	".side-nav",
}

// presets holds every known category in declaration order. Order matters:
// when a node matches several categories, removal stats attribute it to the
// first one whose selector matched.
var presets = []Preset{
	{
		Name: "footer",
		Selectors: []string{
			"footer", ".footer", "#footer", ".site-footer", ".page-footer",
			".footer-content", ".footer-wrapper", ".footer-container",
			`[role="contentinfo"]`, ".footer-section", ".bottom-footer",
		},
		Keywords: []string{"版权所有", "©", "copyright", "联系我们", "友情链接"},
	},
	{
		Name: "header",
		Selectors: []string{
			"header", ".header", "#header", ".site-header", ".page-header",
			".header-content", ".header-wrapper", ".header-container",
			".top-header", ".main-header",
		},
	},
	{
		Name:      "navigation",
		Selectors: navigationSelectors,
	},
	{
		Name: "ads",
		Selectors: []string{
			".ad", ".ads", ".advertisement", ".advert", ".banner",
			".google-ad", ".adsense", ".ad-container", ".ad-wrapper",
			".sponsored", ".promotion", ".promo",
			`[class*="ad-"]`, `[class*="ads-"]`,
		},
		Keywords: []string{"广告", "推广", "advertisement", "sponsored"},
	},
	{
		Name: "social",
		Selectors: []string{
			".social", ".social-media", ".social-links", ".share",
			".share-buttons", ".social-share", ".follow-us",
			".social-icons", ".social-bar",
		},
		Keywords: []string{"分享", "关注我们", "follow us"},
	},
	{
		Name: "comments",
		Selectors: []string{
			".comments", ".comment", ".comment-section", ".discussion",
			".replies", ".feedback", "#comments", "#disqus_thread",
			".comment-form", ".comment-list",
		},
		Keywords: []string{"评论", "留言", "comments"},
	},
	{
		Name: "sidebar",
		Selectors: []string{
			".sidebar", ".side-bar", ".widget", ".widgets",
			".sidebar-content", ".secondary", ".aside",
			`[role="complementary"]`,
		},
	},
	{
		Name: "popup",
		Selectors: []string{
			".popup", ".modal", ".overlay", ".lightbox",
			".dialog", ".alert", ".notification", ".toast",
			".popup-content", ".modal-content",
		},
	},
}

// PresetNames returns every known preset name in declaration order.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.Name
	}
	return names
}

// LookupPreset returns the preset for a name, if known.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// NavigationSelectors returns the priority-ordered navigation selector list
// shared with the navigation synthesizer. Callers must not mutate it.
func NavigationSelectors() []string {
	return navigationSelectors
}

// DefaultPresets is the filter set applied when no content-filter config is
// given: footer, ads and popup removal.
func DefaultPresets() []string {
	return []string{"footer", "ads", "popup"}
}
