package models

// HistoryImage is one photo inside a history collection
type HistoryImage struct {
	PhotoIndex int    `json:"photo_index"`
	ImageSrc   string `json:"image_src"`
	Title      string `json:"title"`
}

// HistoryCollection is a numbered photo-history set, keyed by Index
type HistoryCollection struct {
	Index  int            `json:"col_index"`
	Code   string         `json:"code"`
	Title  string         `json:"title"`
	Intro  string         `json:"intro,omitempty"`
	Images []HistoryImage `json:"imageList"`
}
