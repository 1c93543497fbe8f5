package enrichment

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"stsdash/combo"
)

// DefaultFIRDSQueryURL is ESMA's register-files search endpoint.
const DefaultFIRDSQueryURL = "https://registers.esma.europa.eu/solr/esma_registers_firds_files/select"

// FIRDSClient locates, downloads and scans ESMA FIRDS full reference-data
// files. Scans stream record by record, so the multi-hundred-megabyte files
// are never held in memory whole.
type FIRDSClient struct {
	QueryURL string
	Client   *http.Client
	DataDir  string
}

// NewFIRDSClient returns a client storing downloaded files under dataDir.
func NewFIRDSClient(queryURL, dataDir string, client *http.Client) (*FIRDSClient, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create FIRDS data dir: %w", err)
	}
	return &FIRDSClient{QueryURL: queryURL, Client: client, DataDir: dataDir}, nil
}

// solr file-list response: each doc describes one published file.
type solrDoc struct {
	Strs []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:",chardata"`
	} `xml:"str"`
}

type solrResponse struct {
	Docs []solrDoc `xml:"result>doc"`
}

func (d solrDoc) field(name string) string {
	for _, s := range d.Strs {
		if s.Name == name {
			return s.Value
		}
	}
	return ""
}

// FileURLs queries the publication window for FULINS debt-instrument files
// and returns their download links. With both dates zero the window is the
// last seven days through today; with only from set, the window is that
// single day.
func (c *FIRDSClient) FileURLs(ctx context.Context, from, to time.Time) ([]string, error) {
	if from.IsZero() {
		to = time.Now()
		from = to.AddDate(0, 0, -7)
	} else if to.IsZero() {
		to = from
	}

	url := fmt.Sprintf(
		"%s?q=*&fq=publication_date:%%5B%sT00:00:00Z+TO+%sT23:59:59Z%%5D&wt=xml&indent=true&start=0&rows=100",
		c.QueryURL, from.Format("2006-01-02"), to.Format("2006-01-02"),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build FIRDS query: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("FIRDS file query failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FIRDS file query: unexpected status %s", resp.Status)
	}

	var parsed solrResponse
	if err := xml.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse FIRDS file list: %w", err)
	}

	var urls []string
	for _, doc := range parsed.Docs {
		// Only full files for debt instruments are relevant.
		if strings.HasPrefix(doc.field("file_name"), "FULINS_D") {
			if link := doc.field("download_link"); link != "" {
				urls = append(urls, link)
			}
		}
	}
	return urls, nil
}

// DownloadZip fetches one zipped reference file and extracts its payload
// into the data dir, returning the extracted path.
func (c *FIRDSClient) DownloadZip(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", url, err)
	}
	zr, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return "", fmt.Errorf("bad zip archive from %s: %w", url, err)
	}
	if len(zr.File) == 0 {
		return "", fmt.Errorf("empty zip archive from %s", url)
	}

	entry := zr.File[0]
	dest := filepath.Join(c.DataDir, filepath.Base(entry.Name))
	src, err := entry.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open zip entry %s: %w", entry.Name, err)
	}
	defer src.Close()
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	return dest, nil
}

// XMLFiles returns the reference files to scan: the XML files already in the
// data dir or, when there are none or force is set, a fresh download of the
// default query window.
func (c *FIRDSClient) XMLFiles(ctx context.Context, force bool) ([]string, error) {
	entries, err := os.ReadDir(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list FIRDS data dir: %w", err)
	}
	var existing []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".xml") {
			existing = append(existing, filepath.Join(c.DataDir, e.Name()))
		}
	}
	if len(existing) > 0 && !force {
		return existing, nil
	}

	for _, f := range existing {
		if err := os.Remove(f); err != nil {
			return nil, fmt.Errorf("failed to remove stale file %s: %w", f, err)
		}
	}
	urls, err := c.FileURLs(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, url := range urls {
		p, err := c.DownloadZip(ctx, url)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// refData mirrors the slice of a FIRDS RefData element the pipeline needs.
// Fields are matched by local element name, ignoring the ISO 20022
// namespace.
type refData struct {
	General struct {
		ISIN     string `xml:"Id"`
		Currency string `xml:"NtnlCcy"`
	} `xml:"FinInstrmGnlAttrbts"`
	IssuerLEI string `xml:"Issr"`
	Debt      struct {
		TotalIssuedAmount string `xml:"TtlIssdNmnlAmt"`
	} `xml:"DebtInstrmAttrbts"`
	Tech struct {
		CompetentAuthority string `xml:"RlvntCmptntAuthrty"`
	} `xml:"TechAttrbts"`
}

// SearchFile streams one reference file looking for ISINs still in the
// missing set. Hits are returned and removed from missing. Each RefData
// element is decoded and released before the next one is read.
func (c *FIRDSClient) SearchFile(path string, missing map[string]struct{}) (map[string]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference file: %w", err)
	}
	defer f.Close()

	results := make(map[string]Record)
	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "RefData" {
			continue
		}
		var rd refData
		if err := dec.DecodeElement(&rd, &start); err != nil {
			return nil, fmt.Errorf("failed to decode RefData element in %s: %w", path, err)
		}
		isin := strings.TrimSpace(rd.General.ISIN)
		if _, want := missing[isin]; !want {
			continue
		}
		amount, _ := strconv.ParseFloat(strings.TrimSpace(rd.Debt.TotalIssuedAmount), 64)
		results[isin] = Record{
			Currency:           strings.TrimSpace(rd.General.Currency),
			IssuerLEI:          strings.TrimSpace(rd.IssuerLEI),
			CompetentAuthority: strings.TrimSpace(rd.Tech.CompetentAuthority),
			NominalAmount:      combo.Amount{Currency: strings.TrimSpace(rd.General.Currency), Value: amount},
		}
		delete(missing, isin)
	}
	return results, nil
}

// SearchAll scans the given files for the working set of ISINs, shrinking
// the missing set file by file until it is empty or the files run out.
// Returns the accumulated hits and the ISINs never found.
func (c *FIRDSClient) SearchAll(paths []string, isins []string) (map[string]Record, []string, error) {
	missing := make(map[string]struct{}, len(isins))
	for _, isin := range isins {
		missing[isin] = struct{}{}
	}
	results := make(map[string]Record, len(isins))
	for _, path := range paths {
		if len(missing) == 0 {
			break
		}
		hits, err := c.SearchFile(path, missing)
		if err != nil {
			return nil, nil, err
		}
		for isin, rec := range hits {
			results[isin] = rec
		}
	}
	unresolved := make([]string, 0, len(missing))
	for isin := range missing {
		unresolved = append(unresolved, isin)
	}
	return results, unresolved, nil
}
