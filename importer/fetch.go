package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FetchFile downloads url to fpath unless the file already exists. With
// force set the file is re-downloaded regardless. HTTP failures are returned
// to the caller, never swallowed: a failed fetch means there is no data to
// proceed with.
func FetchFile(ctx context.Context, client *http.Client, fpath, url string, force bool) (string, error) {
	if !force {
		if _, err := os.Stat(fpath); err == nil {
			return fpath, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}

	f, err := os.Create(fpath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", fpath, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", fpath, err)
	}
	return fpath, nil
}

// FindRegisterURL scans an ESMA library page for the link to the STS
// securitisations register workbook and returns its href. Used to pick up
// the latest register edition without hardcoding the file name.
func FindRegisterURL(page io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return "", fmt.Errorf("failed to parse library page: %w", err)
	}
	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link, _ := s.Attr("href")
		if strings.Contains(link, "securitisations_designated_as_sts") && strings.HasSuffix(link, ".xlsx") {
			href = link
			return false
		}
		return true
	})
	if href == "" {
		return "", fmt.Errorf("no register workbook link found on library page")
	}
	return href, nil
}
