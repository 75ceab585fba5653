package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Source kinds
const (
	KindHTML  = "html"
	KindJSONP = "jsonp"
)

// Detail fetch modes
const (
	DetailNever     = "never"
	DetailAlways    = "always"
	DetailThreshold = "threshold"
)

// History source kinds
const (
	HistoryAPI  = "api"
	HistoryHTML = "html"
)

// SiteConfig describes one fan-club site
type SiteConfig struct {
	ID       string `yaml:"id" json:"id"`
	Kind     string `yaml:"kind" json:"kind"`
	HomePage string `yaml:"home_page" json:"home_page"`
	// ListURL is a template; {page} is replaced by the page number, {offset} by page*page_size
	ListURL   string `yaml:"list_url" json:"list_url"`
	PageSize  int    `yaml:"page_size" json:"page_size"`
	FirstPage int    `yaml:"first_page" json:"first_page"`
	Lanes     int    `yaml:"lanes" json:"lanes"`
	MaxPage   int    `yaml:"max_page" json:"max_page"`

	DateLayout string `yaml:"date_layout" json:"date_layout"`
	JapanTime  bool   `yaml:"japan_time" json:"japan_time"`

	Listing ListingSelectors `yaml:"listing" json:"listing"`
	Detail  DetailConfig     `yaml:"detail" json:"detail"`

	KeepContent  bool       `yaml:"keep_content" json:"keep_content"`
	IgnoreImages []string   `yaml:"ignore_images" json:"ignore_images"`
	Cookies      []Cookie   `yaml:"cookies" json:"cookies"`
	Umbrellas    []Umbrella `yaml:"umbrellas" json:"umbrellas"`

	ArchiveFolder string `yaml:"archive_folder" json:"archive_folder"`
	Snapshot      string `yaml:"snapshot" json:"snapshot"`

	History *HistorySource `yaml:"history,omitempty" json:"history,omitempty"`
}

// ListingSelectors locate fields inside one listing entry
type ListingSelectors struct {
	Entry string `yaml:"entry" json:"entry"`
	// ExactClass keeps only entries whose class attribute equals this value
	ExactClass string `yaml:"exact_class" json:"exact_class"`
	Link       string `yaml:"link" json:"link"`
	Author     string `yaml:"author" json:"author"`
	Title      string `yaml:"title" json:"title"`
	Date       string `yaml:"date" json:"date"`
	Body       string `yaml:"body" json:"body"`
}

// DetailConfig controls when and how the detail page is read
type DetailConfig struct {
	Mode           string   `yaml:"mode" json:"mode"`
	ImageThreshold int      `yaml:"image_threshold" json:"image_threshold"`
	Body           string   `yaml:"body" json:"body"`
	Title          string   `yaml:"title" json:"title"`
	Date           string   `yaml:"date" json:"date"`
	Require        []string `yaml:"require" json:"require"`
	// URLSuffix is appended to detail URLs, e.g. a query string
	URLSuffix string `yaml:"url_suffix" json:"url_suffix"`
	// URL rebuilds a detail URL from a post ID ({home}, {id}); used by content backfill
	URL string `yaml:"url" json:"url"`
}

// Cookie is a name/value pair sent with every request to a site
type Cookie struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

// Umbrella maps a shared author label onto the individuals posting under it
type Umbrella struct {
	Label       string   `yaml:"label" json:"label"`
	Individuals []string `yaml:"individuals" json:"individuals"`
}

// HistorySource describes a site's photo-history collections
type HistorySource struct {
	Kind string `yaml:"kind" json:"kind"`
	// URL is a template; {code} is replaced by the collection code
	URL string `yaml:"url" json:"url"`
	// CodeFormat is a fmt pattern producing the code from the index
	CodeFormat string `yaml:"code_format" json:"code_format"`
	FirstIndex int    `yaml:"first_index" json:"first_index"`
	// MinLastIndex is the lowest upper bound scanned even with an empty snapshot
	MinLastIndex int `yaml:"min_last_index" json:"min_last_index"`
	// ScanAhead is how far past the highest known index to probe
	ScanAhead int `yaml:"scan_ahead" json:"scan_ahead"`
}

// UmbrellaMap returns the umbrella labels keyed by label
func (s *SiteConfig) UmbrellaMap() map[string][]string {
	out := make(map[string][]string, len(s.Umbrellas))
	for _, u := range s.Umbrellas {
		out[u.Label] = u.Individuals
	}
	return out
}

// Home returns the home page without a trailing slash
func (s *SiteConfig) Home() string {
	return strings.TrimRight(s.HomePage, "/")
}

// ListPageURL expands ListURL for one page number
func (s *SiteConfig) ListPageURL(page int) string {
	return strings.NewReplacer(
		"{home}", s.Home(),
		"{page}", strconv.Itoa(page),
		"{offset}", strconv.Itoa(page*s.PageSize),
	).Replace(s.ListURL)
}

// DetailURL expands Detail.URL for a post ID, or returns "" when the site has no template
func (s *SiteConfig) DetailURL(id string) string {
	if s.Detail.URL == "" {
		return ""
	}
	return strings.NewReplacer("{home}", s.Home(), "{id}", id).Replace(s.Detail.URL)
}

// HistoryURL expands the history template for the collection at index,
// returning the collection code alongside the URL
func (s *SiteConfig) HistoryURL(index int) (code, url string) {
	if s.History == nil {
		return "", ""
	}
	code = fmt.Sprintf(s.History.CodeFormat, index)
	url = strings.NewReplacer("{home}", s.Home(), "{code}", code).Replace(s.History.URL)
	return code, url
}

// Validate checks a single site definition
func (s *SiteConfig) Validate() error {
	var errs []error
	if s.ID == "" {
		errs = append(errs, errors.New("site id is required"))
	}
	if s.HomePage == "" {
		errs = append(errs, fmt.Errorf("site %s: home page is required", s.ID))
	}
	if s.ListURL == "" {
		errs = append(errs, fmt.Errorf("site %s: list url is required", s.ID))
	}

	switch s.Kind {
	case KindHTML:
		if s.Listing.Entry == "" || s.Listing.Link == "" {
			errs = append(errs, fmt.Errorf("site %s: listing entry and link selectors are required", s.ID))
		}
		switch s.Detail.Mode {
		case DetailNever, DetailAlways:
		case DetailThreshold:
			if s.Detail.ImageThreshold <= 0 {
				errs = append(errs, fmt.Errorf("site %s: image threshold must be positive", s.ID))
			}
		default:
			errs = append(errs, fmt.Errorf("site %s: invalid detail mode %q", s.ID, s.Detail.Mode))
		}
	case KindJSONP:
		if s.PageSize <= 0 {
			errs = append(errs, fmt.Errorf("site %s: page size must be positive", s.ID))
		}
	default:
		errs = append(errs, fmt.Errorf("site %s: invalid kind %q", s.ID, s.Kind))
	}

	for _, u := range s.Umbrellas {
		if u.Label == "" || len(u.Individuals) == 0 {
			errs = append(errs, fmt.Errorf("site %s: umbrella needs a label and at least one individual", s.ID))
		}
	}

	if s.History != nil {
		if s.History.Kind != HistoryAPI && s.History.Kind != HistoryHTML {
			errs = append(errs, fmt.Errorf("site %s: invalid history kind %q", s.ID, s.History.Kind))
		}
		if !strings.Contains(s.History.URL, "{code}") {
			errs = append(errs, fmt.Errorf("site %s: history url must contain {code}", s.ID))
		}
	}

	return errors.Join(errs...)
}

var placeholderImages = []string{
	"/static/common/global-image/dummy.gif",
	"/static/ligareaz/official/common/cover_video.png",
	"/static/common/global-image/blank_thumb.gif",
}

// DefaultSites returns the built-in site definitions
func DefaultSites() []SiteConfig {
	return []SiteConfig{
		{
			ID:         "Hinatazaka46",
			Kind:       KindHTML,
			HomePage:   "https://www.hinatazaka46.com",
			ListURL:    "{home}/s/official/diary/member/list?page={page}",
			DateLayout: "2006.1.2 15:04",
			JapanTime:  true,
			Listing: ListingSelectors{
				Entry:  ".p-blog-group > .p-blog-article",
				Link:   "a.c-button-blog-detail",
				Author: "div.c-blog-article__name",
				Title:  "div.c-blog-article__title",
				Date:   "div.c-blog-article__date",
				Body:   "div.c-blog-article__text",
			},
			Detail: DetailConfig{
				Mode:           DetailThreshold,
				ImageThreshold: 20,
				Body:           "div.c-blog-article__text",
				URLSuffix:      "?ima=0000&cd=member",
				URL:            "{home}/s/official/diary/detail/{id}?ima=0000&cd=member",
			},
			KeepContent: true,
			Umbrellas: []Umbrella{
				{Label: "五期生リレー", Individuals: []string{
					"大野愛実", "鶴崎仁香", "坂井新奈", "佐藤優羽", "下田衣珠季",
					"片山紗希", "大田美月", "高井俐香", "松尾桜", "蔵盛妃那乃",
				}},
			},
			ArchiveFolder: "◢日向坂46",
			History: &HistorySource{
				Kind:       HistoryAPI,
				URL:        "{home}/s/official/api/list/history?ct={code}",
				CodeFormat: "fc_photo_%d",
				FirstIndex: 1,
				ScanAhead:  5,
			},
		},
		{
			ID:         "Sakurazaka46",
			Kind:       KindHTML,
			HomePage:   "https://sakurazaka46.com",
			ListURL:    "{home}/s/s46/diary/blog/list?page={page}",
			DateLayout: "2006/01/02 15:04",
			Listing: ListingSelectors{
				Entry:      "li.box",
				ExactClass: "box",
				Link:       "a",
				Author:     "p.name",
				Title:      "h3.title",
			},
			Detail: DetailConfig{
				Mode:    DetailAlways,
				Body:    "div.box-article",
				Date:    "div.blog-foot p.date.wf-a",
				Require: []string{"div.box-article", "div.blog-foot"},
				URL:     "{home}/s/s46/diary/detail/{id}",
			},
			KeepContent: true,
			Umbrellas: []Umbrella{
				{Label: "四期生リレー", Individuals: []string{
					"浅井恋乃未", "稲熊ひな", "勝又春", "佐藤愛桜", "中川智尋",
					"松本和子", "目黒陽色", "山川宇衣", "山田桃実",
				}},
			},
			ArchiveFolder: "◢櫻坂46",
			History: &HistorySource{
				Kind:         HistoryHTML,
				URL:          "{home}/s/s46/contents_list?cd=104&ct={code}",
				CodeFormat:   "fc_photo_0%d",
				FirstIndex:   27,
				MinLastIndex: 30,
			},
		},
		{
			ID:         "Nogizaka46",
			Kind:       KindJSONP,
			HomePage:   "https://www.nogizaka46.com",
			ListURL:    "{home}/s/n46/api/list/blog?rw=128&st={offset}&callback=res",
			PageSize:   128,
			DateLayout: "2006/01/02 15:04:05",
			JapanTime:  true,
			Detail: DetailConfig{
				Mode: DetailNever,
			},
			KeepContent: true,
			Umbrellas: []Umbrella{
				{Label: "３期生", Individuals: []string{
					"伊藤理々杏", "岩本蓮加", "梅澤美波", "大園桃子", "久保史緒里", "阪口珠美",
					"佐藤楓", "中村麗乃", "向井葉月", "山下美月", "吉田綾乃クリスティー", "与田祐希",
				}},
				{Label: "４期生", Individuals: []string{
					"遠藤さくら", "賀喜遥香", "掛橋沙耶香", "金川紗耶", "北川悠理", "柴田柚菜",
					"清宮レイ", "田村真佑", "筒井あやめ", "早川聖来", "矢久保美緒",
				}},
				{Label: "新4期生", Individuals: []string{
					"黒見明香", "佐藤璃果", "林瑠奈", "松尾美佑", "弓木奈於",
				}},
				{Label: "5期生", Individuals: []string{
					"五百城茉央", "池田瑛紗", "一ノ瀬美空", "井上和", "岡本姫奈", "小川彩",
					"奥田いろは", "川﨑桜", "菅原咲月", "冨里奈央", "中西アルノ",
				}},
				{Label: "6期生リレー", Individuals: []string{
					"愛宕心響", "大越ひなの", "小津玲奈", "海邉朱莉", "川端晃菜", "鈴木佑捺",
					"瀬戸口心月", "長嶋凛桜", "増田三莉音", "森平麗心", "矢田萌華",
				}},
			},
			ArchiveFolder: "◢乃木坂46",
		},
		{
			ID:         "Keyakizaka46",
			Kind:       KindHTML,
			HomePage:   "https://keyakizaka46.com",
			ListURL:    "{home}/s/k46o/diary/member/list?page={page}",
			DateLayout: "2006/01/02 15:04",
			JapanTime:  true,
			Listing: ListingSelectors{
				Entry:  "article",
				Link:   "a",
				Author: "p.name",
				Title:  "div.box-ttl a",
				Date:   "div.box-bottom li",
				Body:   "div.box-article",
			},
			Detail: DetailConfig{
				Mode:           DetailThreshold,
				ImageThreshold: 10,
				Body:           "div.box-article",
				URL:            "{home}/s/k46o/diary/detail/{id}",
			},
			ArchiveFolder: "◢欅坂46",
		},
		{
			ID:         "Bokuao",
			Kind:       KindHTML,
			HomePage:   "https://bokuao.com",
			ListURL:    "{home}/blog/list/1/0/?writer=0&page={page}",
			FirstPage:  1,
			DateLayout: "2006.01.02",
			Listing: ListingSelectors{
				Entry:  "li[data-delighter]",
				Link:   "a",
				Author: "p.writer",
				Title:  "p.tit",
				Date:   "time.date",
			},
			Detail: DetailConfig{
				Mode:    DetailAlways,
				Body:    "div.txt",
				Require: []string{"div.txt"},
				URL:     "{home}/blog/detail/{id}",
			},
			IgnoreImages:  append([]string(nil), placeholderImages...),
			ArchiveFolder: "僕青",
		},
	}
}
