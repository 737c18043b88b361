// Package filter implements the layered URL-admission chain. Rules are
// independent conjunctions: a URL is admitted iff every enabled rule passes.
// Evaluation order is fixed so that rejection logs always attribute the first
// failing rule.
package filter

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"site-crawler/pkg/config"
	"site-crawler/pkg/utils"
)

// socialDomains is the static blocklist behind the exclude-social rule.
var socialDomains = []string{
	"facebook.com",
	"twitter.com",
	"x.com",
	"instagram.com",
	"linkedin.com",
	"youtube.com",
	"tiktok.com",
	"pinterest.com",
	"reddit.com",
}

// imageExtensions is the extension blocklist behind the exclude-images rule.
var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".svg": true, ".ico": true, ".webp": true, ".bmp": true, ".tiff": true,
}

// Rule is a single admission predicate.
type Rule interface {
	Name() string
	// Admit reports whether the URL passes this rule.
	Admit(u *url.URL) bool
}

// Chain evaluates an ordered, pre-compiled rule set.
type Chain struct {
	rules []Rule
}

// NewChain compiles a chain from configuration. The seed URL anchors the
// exclude-external rule. Pattern compilation errors are configuration errors;
// TaskConfig.Validate catches them earlier, so an error here means the chain
// was built from an unvalidated config.
func NewChain(cfg config.FilterChainConfig, seed *url.URL) (*Chain, error) {
	var rules []Rule

	if cfg.ExcludeExternal && seed != nil {
		rules = append(rules, &externalRule{registrable: registrableDomain(seed.Hostname())})
	}
	if cfg.ExcludeSocial {
		rules = append(rules, &domainListRule{name: "exclude-social", domains: socialDomains})
	}
	if len(cfg.ExcludeDomains) > 0 {
		lowered := make([]string, len(cfg.ExcludeDomains))
		for i, d := range cfg.ExcludeDomains {
			lowered[i] = strings.ToLower(d)
		}
		rules = append(rules, &domainListRule{name: "exclude-domains", domains: lowered})
	}
	if len(cfg.ExcludePatterns) > 0 {
		compiled, err := utils.CompileWildcardPatterns(cfg.ExcludePatterns)
		if err != nil {
			return nil, err
		}
		rules = append(rules, &patternRule{patterns: compiled})
	}
	if cfg.ExcludeImages {
		rules = append(rules, imageRule{})
	}

	return &Chain{rules: rules}, nil
}

// Admit evaluates every rule in order. On rejection it returns false and the
// name of the first failing rule for log attribution.
func (c *Chain) Admit(u *url.URL) (admitted bool, failedRule string) {
	if u == nil {
		return false, "invalid-url"
	}
	for _, rule := range c.rules {
		if !rule.Admit(u) {
			return false, rule.Name()
		}
	}
	return true, ""
}

// Len returns the number of enabled rules.
func (c *Chain) Len() int { return len(c.rules) }

// --- exclude-external ---

type externalRule struct {
	registrable string // Registrable domain of the seed, e.g. "example.co.uk"
}

func (r *externalRule) Name() string { return "exclude-external" }

func (r *externalRule) Admit(u *url.URL) bool {
	return registrableDomain(u.Hostname()) == r.registrable
}

// registrableDomain reduces a hostname to its eTLD+1 so that subdomains of
// the seed's site still count as internal. Hosts the public-suffix list
// cannot resolve (IPs, localhost) fall back to the raw hostname.
func registrableDomain(host string) string {
	host = strings.ToLower(host)
	if d, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return d
	}
	return host
}

// --- exclude-social / exclude-domains ---

type domainListRule struct {
	name    string
	domains []string
}

func (r *domainListRule) Name() string { return r.name }

func (r *domainListRule) Admit(u *url.URL) bool {
	host := strings.ToLower(u.Hostname())
	for _, blocked := range r.domains {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return false
		}
	}
	return true
}

// --- exclude-patterns ---

type patternRule struct {
	patterns []*regexp.Regexp
}

func (r *patternRule) Name() string { return "exclude-patterns" }

func (r *patternRule) Admit(u *url.URL) bool {
	full := u.String()
	for _, p := range r.patterns {
		if p.MatchString(full) {
			return false
		}
	}
	return true
}

// --- exclude-images ---

type imageRule struct{}

func (imageRule) Name() string { return "exclude-images" }

func (imageRule) Admit(u *url.URL) bool {
	ext := strings.ToLower(path.Ext(u.Path))
	return !imageExtensions[ext]
}
