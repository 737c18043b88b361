// Package report renders a finished task into files: machine-readable
// summary and URL-outcome JSON, YAML crawl metadata, per-page markdown, and
// the navigation report in markdown and HTML.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"

	"site-crawler/pkg/config"
	"site-crawler/pkg/models"
	"site-crawler/pkg/nav"
	"site-crawler/pkg/utils"
)

// PageMetadata is the per-page entry in the YAML metadata file.
type PageMetadata struct {
	URL         string    `yaml:"url"`
	Title       string    `yaml:"title,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Depth       int       `yaml:"depth"`
	StatusCode  int       `yaml:"status_code"`
	TokenCount  int       `yaml:"token_count,omitempty"`
	FetchedAt   time.Time `yaml:"fetched_at"`
	OutputFile  string    `yaml:"output_file,omitempty"`
}

// CrawlMetadata is the top-level YAML metadata document.
type CrawlMetadata struct {
	TaskID          string             `yaml:"task_id"`
	SeedURL         string             `yaml:"seed_url"`
	CrawlStartTime  time.Time          `yaml:"crawl_start_time"`
	CrawlEndTime    time.Time          `yaml:"crawl_end_time"`
	TotalPagesSaved int                `yaml:"total_pages_saved"`
	TaskConfig      *config.TaskConfig `yaml:"task_configuration,omitempty"`
	Pages           []PageMetadata     `yaml:"pages"`
}

// Input bundles everything a finished task produced.
type Input struct {
	TaskID  string
	Config  *config.TaskConfig
	Summary models.TaskSummary
	Pages   []models.PageResult
	Records []models.URLRecord
	Nav     nav.Report
}

// Writer renders task reports under a base output directory.
type Writer struct {
	outputDir string
	log       *logrus.Entry
}

func NewWriter(outputDir string, log *logrus.Entry) *Writer {
	return &Writer{outputDir: outputDir, log: log}
}

// Write renders every artifact for one task under <outputDir>/<taskID>/.
// Individual artifact failures are logged and the first error returned after
// the remaining artifacts were still attempted.
func (w *Writer) Write(in Input) error {
	taskDir := filepath.Join(w.outputDir, utils.SanitizeFilename(in.TaskID))
	if err := os.MkdirAll(filepath.Join(taskDir, "pages"), 0755); err != nil {
		return fmt.Errorf("%w: creating report directory '%s': %w", utils.ErrFilesystem, taskDir, err)
	}

	var firstErr error
	keep := func(err error) {
		if err != nil {
			w.log.Errorf("Report artifact failed: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	pageFiles := w.writePages(taskDir, in.Pages, keep)
	keep(w.writeSummary(taskDir, in))
	keep(w.writeURLOutcomes(taskDir, in.Records))
	keep(w.writeMetadata(taskDir, in, pageFiles))
	keep(w.writeNavigation(taskDir, in.Nav))
	return firstErr
}

// writePages stores each page's markdown and returns normalized URL ->
// relative file path for the metadata document.
func (w *Writer) writePages(taskDir string, pages []models.PageResult, keep func(error)) map[string]string {
	files := make(map[string]string, len(pages))
	for _, page := range pages {
		name := pageFilename(page.NormalizedURL)
		rel := filepath.Join("pages", name)
		path := filepath.Join(taskDir, rel)

		if err := os.WriteFile(path, []byte(page.Markdown), 0644); err != nil {
			keep(fmt.Errorf("%w: writing page '%s': %w", utils.ErrFilesystem, path, err))
			continue
		}
		files[page.NormalizedURL] = rel
	}
	return files
}

func (w *Writer) writeSummary(taskDir string, in Input) error {
	data, err := json.MarshalIndent(in.Summary, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshalling summary: %w", utils.ErrParsing, err)
	}
	return writeFile(filepath.Join(taskDir, "summary.json"), data)
}

// writeURLOutcomes maps every seen URL to its terminal outcome, sorted for
// stable diffs.
func (w *Writer) writeURLOutcomes(taskDir string, records []models.URLRecord) error {
	sorted := make([]models.URLRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].NormalizedURL < sorted[j].NormalizedURL
	})

	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshalling URL outcomes: %w", utils.ErrParsing, err)
	}
	return writeFile(filepath.Join(taskDir, "urls.json"), data)
}

func (w *Writer) writeMetadata(taskDir string, in Input, pageFiles map[string]string) error {
	pages := make([]PageMetadata, 0, len(in.Pages))
	for _, p := range in.Pages {
		pages = append(pages, PageMetadata{
			URL:         p.URL,
			Title:       p.Title,
			Description: p.Description,
			Depth:       p.Depth,
			StatusCode:  p.StatusCode,
			TokenCount:  p.TokenCount,
			FetchedAt:   p.FetchedAt,
			OutputFile:  pageFiles[p.NormalizedURL],
		})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })

	metadata := CrawlMetadata{
		TaskID:          in.TaskID,
		SeedURL:         in.Config.SeedURL,
		CrawlStartTime:  in.Summary.FinishedAt.Add(-in.Summary.Duration),
		CrawlEndTime:    in.Summary.FinishedAt,
		TotalPagesSaved: len(pages),
		TaskConfig:      in.Config,
		Pages:           pages,
	}

	data, err := yaml.Marshal(&metadata)
	if err != nil {
		return fmt.Errorf("%w: marshalling crawl metadata: %w", utils.ErrParsing, err)
	}
	return writeFile(filepath.Join(taskDir, "metadata.yaml"), data)
}

// writeNavigation renders the navigation report as markdown, then converts
// that same markdown to HTML so the two never drift.
func (w *Writer) writeNavigation(taskDir string, report nav.Report) error {
	markdown := nav.RenderMarkdown(report)
	if err := writeFile(filepath.Join(taskDir, "navigation.md"), []byte(markdown)); err != nil {
		return err
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &html); err != nil {
		return fmt.Errorf("%w: rendering navigation HTML: %w", utils.ErrMarkdown, err)
	}
	return writeFile(filepath.Join(taskDir, "navigation.html"), html.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}

// pageFilename maps a normalized URL to a stable markdown filename. Path
// collisions across hosts are avoided by prefixing the host.
func pageFilename(normalizedURL string) string {
	u, err := url.Parse(normalizedURL)
	if err != nil {
		return utils.SanitizeFilename(normalizedURL) + ".md"
	}
	name := utils.SanitizeFilename(u.Host) + "_" + utils.URLToFilename(u.Path)
	return name + ".md"
}
