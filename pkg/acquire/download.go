package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

// DownloadError reports a failed package download
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// download streams url into a new temporary file. The caller removes the
// file; on error nothing is left behind.
func (a *Acquirer) download(ctx context.Context, url string) (afero.File, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}

	response, err := a.httpClient.Do(request)
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, &DownloadError{URL: url, StatusCode: response.StatusCode}
	}

	tmp, err := afero.TempFile(a.fs, a.tempDir, "omeka-dist-*")
	if err != nil {
		return nil, &DownloadError{URL: url, Err: err}
	}

	n, err := io.Copy(tmp, response.Body)
	if err != nil {
		a.discard(tmp)
		return nil, &DownloadError{URL: url, Err: err}
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		a.discard(tmp)
		return nil, &DownloadError{URL: url, Err: err}
	}

	a.logger.Debug().
		Str("url", url).
		Str("size", humanize.Bytes(uint64(n))).
		Msg("Downloaded archive")
	return tmp, nil
}

// discard closes and removes a temporary file
func (a *Acquirer) discard(f afero.File) {
	name := f.Name()
	_ = f.Close()
	if err := a.fs.Remove(name); err != nil {
		a.logger.Warn().Err(err).Str("path", name).Msg("Failed to remove temporary file")
	}
}
