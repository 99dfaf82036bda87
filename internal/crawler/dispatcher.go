package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"sync"
)

// 内置来源
const (
	PDFDomain    = "https://amazonaws.com"
	PubMedDomain = "https://pubmed.ncbi.nlm.nih.gov"
	PMCDomain    = "https://pmc.ncbi.nlm.nih.gov"
)

// route 一条域名匹配规则
type route struct {
	domain  string
	pattern *regexp.Regexp
	factory Factory
}

// Dispatcher 根据链接选择爬虫
// 规则按注册顺序匹配，第一条命中的规则生效
type Dispatcher struct {
	mu     sync.RWMutex
	routes []route
	deps   Deps
}

// NewDispatcher 创建爬虫分发器
func NewDispatcher(deps Deps) *Dispatcher {
	return &Dispatcher{deps: deps.withDefaults()}
}

// Register 为域名注册爬虫工厂
// 同时匹配 www. 前缀和 <bucket>.s3.<region>. 形式的S3虚拟主机前缀；
// 重复注册同一域名时替换工厂并保留原有顺序
func (d *Dispatcher) Register(domain string, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("nil crawler factory for %q", domain)
	}

	pattern, normalized, err := domainPattern(domain)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.routes {
		if d.routes[i].domain == normalized {
			d.routes[i].factory = factory
			return nil
		}
	}
	d.routes = append(d.routes, route{domain: normalized, pattern: pattern, factory: factory})
	return nil
}

// domainPattern 编译域名对应的匹配规则
func domainPattern(domain string) (*regexp.Regexp, string, error) {
	raw := strings.TrimSpace(domain)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("invalid domain %q: %w", domain, err)
	}
	if u.Host == "" {
		return nil, "", fmt.Errorf("invalid domain %q: missing host", domain)
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	expr := fmt.Sprintf(`^%s://((www\.)|([a-zA-Z0-9.-]+\.s3\.[a-zA-Z0-9-]+\.))?%s(?:[/?#:]|$)`,
		regexp.QuoteMeta(scheme), regexp.QuoteMeta(host))

	pattern, err := regexp.Compile(expr)
	if err != nil {
		return nil, "", fmt.Errorf("invalid domain %q: %w", domain, err)
	}
	return pattern, scheme + "://" + host, nil
}

// mustRegister 注册内置来源，内置域名总是合法的
func (d *Dispatcher) mustRegister(domain string, factory Factory) *Dispatcher {
	if err := d.Register(domain, factory); err != nil {
		panic(err)
	}
	return d
}

// RegisterPDF 注册S3上的PDF来源
func (d *Dispatcher) RegisterPDF() *Dispatcher {
	return d.mustRegister(PDFDomain, NewPDFCrawler)
}

// RegisterPubMed 注册PubMed来源
func (d *Dispatcher) RegisterPubMed() *Dispatcher {
	return d.mustRegister(PubMedDomain, NewPubMedCrawler)
}

// RegisterPMC 注册PMC来源
func (d *Dispatcher) RegisterPMC() *Dispatcher {
	return d.mustRegister(PMCDomain, NewPMCCrawler)
}

// RegisterSources 按配置顺序注册来源
func (d *Dispatcher) RegisterSources(sources []SourceConfig) error {
	for _, src := range sources {
		factory, err := FactoryByName(src.Crawler)
		if err != nil {
			return err
		}
		if err := d.Register(src.Domain, factory); err != nil {
			return err
		}
	}
	return nil
}

// Domains 按注册顺序返回已注册的域名
func (d *Dispatcher) Domains() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	domains := make([]string, 0, len(d.routes))
	for _, r := range d.routes {
		domains = append(domains, r.domain)
	}
	return domains
}

// GetCrawler 返回处理link的新爬虫实例，没有规则命中时返回通用文章爬虫
func (d *Dispatcher) GetCrawler(link string) Crawler {
	d.mu.RLock()
	for _, r := range d.routes {
		if r.pattern.MatchString(link) {
			factory := r.factory
			d.mu.RUnlock()
			return factory(d.deps)
		}
	}
	d.mu.RUnlock()

	d.deps.Logger.WithField("link", link).Warn("No crawler found for link, defaulting to article crawler")
	return NewArticleCrawler(d.deps)
}
