package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"

	"diarykeeper/pkg/storage"

	"github.com/dustin/go-humanize"
)

// Summary describes a packaged archive
type Summary struct {
	Files    int
	Bytes    uint64
	Location string
}

func (s Summary) String() string {
	out := fmt.Sprintf("%d files, %s", s.Files, humanize.Bytes(s.Bytes))
	if s.Location != "" {
		out += " -> " + s.Location
	}
	return out
}

// WriteZip writes entries as a deflate zip, setting each file's modified time
func WriteZip(w io.Writer, entries []Entry) (Summary, error) {
	var summary Summary
	zw := zip.NewWriter(w)
	for _, e := range entries {
		header := &zip.FileHeader{
			Name:     e.Name,
			Method:   zip.Deflate,
			Modified: e.Modified,
		}
		f, err := zw.CreateHeader(header)
		if err != nil {
			return summary, fmt.Errorf("failed to add %s: %w", e.Name, err)
		}
		if _, err := f.Write(e.Data); err != nil {
			return summary, fmt.Errorf("failed to write %s: %w", e.Name, err)
		}
		summary.Files++
		summary.Bytes += uint64(len(e.Data))
	}
	if err := zw.Close(); err != nil {
		return summary, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return summary, nil
}

// Export packages entries into a zip named name and hands it to sink
func Export(ctx context.Context, sink storage.Sink, name string, entries []Entry) (Summary, error) {
	var buf bytes.Buffer
	summary, err := WriteZip(&buf, entries)
	if err != nil {
		return summary, err
	}
	location, err := sink.Put(ctx, name, buf.Bytes())
	if err != nil {
		return summary, err
	}
	summary.Location = location
	return summary, nil
}
