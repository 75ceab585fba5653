package archive

import (
	"context"
	"path"
	"time"

	"diarykeeper/internal/downloader"
	"diarykeeper/pkg/config"
	"diarykeeper/pkg/models"
)

// CollectionDate returns the day a history collection is filed under. Collections
// are spread evenly between the configured start and end days.
func CollectionDate(cfg config.HistoryConfig, index int) (time.Time, error) {
	start, end, err := cfg.Range()
	if err != nil {
		return time.Time{}, err
	}
	interval := end.Sub(start) / time.Duration(cfg.EndIndex-cfg.StartIndex)
	return start.Add(time.Duration(index-cfg.StartIndex) * interval), nil
}

// PhotoTime places a photo on its collection's day, at hour photo_index/60
// and minute photo_index%60, so file times follow photo order
func PhotoTime(day time.Time, photoIndex int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), photoIndex/60, photoIndex%60, 0, 0, day.Location())
}

// ArchiveHistory fetches the images of history collections. Entries are
// named "<collection title>/<image title>". When code is non-empty only
// that collection is archived.
func (a *Archiver) ArchiveHistory(ctx context.Context, cfg config.HistoryConfig, collections []models.HistoryCollection, code string) ([]Entry, error) {
	var jobs []downloader.Job
	for _, col := range collections {
		if code != "" && col.Code != code {
			continue
		}
		day, err := CollectionDate(cfg, col.Index)
		if err != nil {
			return nil, err
		}
		for _, img := range col.Images {
			if img.ImageSrc == "" {
				continue
			}
			jobs = append(jobs, downloader.Job{
				URL:      img.ImageSrc,
				Name:     path.Join(col.Title, img.Title),
				Modified: PhotoTime(day, img.PhotoIndex),
			})
		}
	}

	entries := a.run(ctx, jobs)
	a.logger.InfoWithFields("History archive assembled", map[string]interface{}{
		"collections": len(collections),
		"images":      len(jobs),
		"entries":     len(entries),
	})
	return entries, ctx.Err()
}
