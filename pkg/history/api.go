package history

import (
	"context"
	"encoding/json"
	"strings"

	"diarykeeper/pkg/config"
	"diarykeeper/pkg/models"
)

type apiPhoto struct {
	Title    string     `json:"title"`
	ImageSrc string     `json:"image_src"`
	Code     flexString `json:"code"`
}

type apiResponse struct {
	Photos []apiPhoto `json:"history_photo"`
}

// flexString accepts a JSON string or number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// apiCollector reads collections from a JSON listing API
type apiCollector struct {
	fetcher Fetcher
	cookies []config.Cookie
}

func (a *apiCollector) collect(ctx context.Context, index int, code, url string) (models.HistoryCollection, bool, error) {
	var resp apiResponse
	if err := a.fetcher.JSON(ctx, url, a.cookies, &resp); err != nil {
		return models.HistoryCollection{}, false, err
	}
	if len(resp.Photos) == 0 {
		return models.HistoryCollection{}, false, nil
	}

	title, _, _ := strings.Cut(resp.Photos[0].Title, "[")
	col := models.HistoryCollection{
		Index:  index,
		Code:   code,
		Title:  strings.TrimSpace(title),
		Images: make([]models.HistoryImage, 0, len(resp.Photos)),
	}
	for i, photo := range resp.Photos {
		col.Images = append(col.Images, models.HistoryImage{
			PhotoIndex: i,
			ImageSrc:   fullSize(photo.ImageSrc),
			Title:      string(photo.Code) + ".jpg",
		})
	}
	return col, true, nil
}
