package markup

// 页面结构变化时只需要修改这里

// 登录页
const (
	LoginEmail    = `input#username, input#session_key`
	LoginPassword = `input#password, input#session_password`
	LoginSubmit   = `button[type="submit"], button[data-litms-control-urn="login-submit"]`
)

// 登录状态
const (
	FeedIndicator = `div.feed-shared-update-v2, div[data-test-id="main-feed"]`
	NavIndicator  = `nav[aria-label="Primary"], li.global-nav__primary-item`
)

// 搜索结果页
const (
	SearchResultItem  = `li.reusable-search__result-container`
	ResultName        = `span.entity-result__title-text a span[aria-hidden="true"]`
	ResultHeadline    = `div.entity-result__primary-subtitle`
	ResultLocation    = `div.entity-result__secondary-subtitle`
	ResultProfileLink = `span.entity-result__title-text a[href*="/in/"]`
)

// 搜索过滤栏, 按钮通过文本匹配
const (
	FilterButton        = `button`
	FilterLocationsText = `^\s*(Locations|Lieux)\s*$`
	FilterIndustryText  = `^\s*(Industry|Secteur)\s*$`
	FilterLocationInput = `input[placeholder="Add a location"], input[placeholder="Ajouter un lieu"]`
	FilterIndustryInput = `input[placeholder="Add an industry"], input[placeholder="Ajouter un secteur"]`
	FilterResultOption  = `[id*="basic-result-"]`
	FilterApply         = `button[data-test-reusables-filters--apply-btn], fieldset button[aria-label*="Apply"]`
)

// 分页
const (
	PaginationNext = `button[aria-label="Next"], button[aria-label="Suivant"]`
)

// 个人主页
const (
	ProfileName        = `h1.text-heading-xlarge, h1[class*="text-heading"]`
	ProfileReady       = ProfileName + `, main[class*="scaffold"]`
	ProfileHeadline    = `div.text-body-medium.break-words`
	ProfileLocation    = `span.text-body-small.inline.t-black--light.break-words`
	ProfileConnections = `li.text-body-small span.t-bold`
	AboutSection       = `section:has(#about)`
	ExperienceSection  = `section:has(#experience)`
	EducationSection   = `section:has(#education)`
	SectionItem        = `li.artdeco-list__item`
	ItemTitle          = `div.display-flex span[aria-hidden="true"]`
	ItemSubtitle       = `span.t-14.t-normal span[aria-hidden="true"]`
	ItemDateRange      = `span.t-14.t-normal.t-black--light span[aria-hidden="true"]`
	SkillItems         = `#skills ~ div ul > li span[aria-hidden="true"]`
)

var aboutTextCandidates = []string{
	`span[aria-hidden="true"]`,
	`div.display-flex span`,
	`div.inline-show-more-text span`,
}

// 联系方式浮层
const (
	ContactInfoLink = `a[href*="/overlay/contact-info/"]`
	ContactEmail    = `section.ci-email a[href^="mailto:"]`
	ContactPhone    = `section.ci-phone span.t-14.t-black.t-normal`
	ContactWebsite  = `section.ci-websites a.link-without-visited-state`
	ContactClose    = `button[aria-label="Dismiss"], button[data-test-modal-close-btn]`
)
