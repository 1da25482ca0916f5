// Package posters downloads movie posters into a flat directory. Files are
// named after the movie's stable identifier, so a poster is fetched at most
// once per identity and is never overwritten afterwards.
package posters

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"showtimes-backend/internal/components/assert"
	"showtimes-backend/internal/components/telemetry"
	"showtimes-backend/internal/identity"

	"github.com/mazen160/go-random"
)

const (
	report_posters_fetch = "posters.fetch"
	report_posters_write = "posters.write"
)

// Prefix is the directory that stored poster references are relative to.
const Prefix = "posters"

type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

type Fetcher struct {
	dir        string
	downloader Downloader
	tel        telemetry.API
}

// NewFetcher creates a fetcher writing into `dir`, references it returns have
// the form "posters/<filename>".
func NewFetcher(dir string, downloader Downloader, tel telemetry.API) Fetcher {
	assert.NotEmptyStr(dir)
	assert.NotNil(downloader)
	assert.NotNil(tel)
	return Fetcher{dir: dir, downloader: downloader, tel: tel}
}

func (f Fetcher) Dir() string {
	return f.dir
}

// Fetch makes sure the poster of the movie identified by `identifier` exists on
// disk and returns its relative reference. A missing url, a failed download and
// a failed write all yield nil, the movie is kept without a poster.
func (f Fetcher) Fetch(ctx context.Context, posterUrl, identifier string) *string {
	if posterUrl == "" {
		return nil
	}
	filename := identity.PosterFilename(identifier, posterUrl)
	if filename == "" {
		return nil
	}
	ref := path.Join(Prefix, filename)
	target := filepath.Join(f.dir, filename)

	_, err := os.Stat(target)
	if err == nil {
		return &ref
	}

	body, err := f.downloader.Download(ctx, posterUrl)
	if err != nil {
		f.tel.ReportWarning(report_posters_fetch, err, identifier)
		return nil
	}

	err = writeNew(target, body)
	if err != nil {
		f.tel.ReportWarning(report_posters_write, err, target)
		return nil
	}
	f.tel.ReportDebug("poster saved", identifier, target)
	return &ref
}

func writeNew(target string, body []byte) error {
	err := os.MkdirAll(filepath.Dir(target), 0777)
	if err != nil {
		return err
	}

	suffix, err := random.String(8)
	if err != nil {
		return err
	}
	tmp := fmt.Sprintf("%s.%s.tmp", target, suffix)
	err = os.WriteFile(tmp, body, 0666)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	// link fails when the target exists, so the first writer of an identity
	// wins even against concurrent workers
	err = os.Link(tmp, target)
	if os.IsExist(err) {
		return nil
	}
	return err
}

// Filename returns the file name of a stored poster reference, references are
// compared by basename so both "posters/x.jpg" and "x.jpg" resolve.
func Filename(ref string) string {
	return path.Base(filepath.ToSlash(ref))
}
