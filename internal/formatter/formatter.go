// package formatter provides functions to export stored playlists to various formats (CSV, Markdown, M3U, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/desertthunder/soundpy/internal/models"
	"github.com/desertthunder/soundpy/internal/shared"
)

// Formats lists the export formats accepted by [Export], in the order shown to users.
var Formats = []string{"json", "csv", "markdown", "m3u", "txt"}

// extensions maps each format to the file extension written by [WriteExport].
var extensions = map[string]string{
	"json":     ".json",
	"csv":      ".csv",
	"markdown": ".md",
	"m3u":      ".m3u",
	"txt":      ".txt",
}

// NormalizeFormat maps aliases (md, text) onto a name from [Formats].
func NormalizeFormat(format string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "json":
		return "json", nil
	case "md", "markdown":
		return "markdown", nil
	case "text", "txt":
		return "txt", nil
	case "csv", "m3u":
		return f, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", shared.ErrInvalidArgument, format)
	}
}

// Export renders p in format.
func Export(p *models.Playlist, format string) ([]byte, error) {
	format, err := NormalizeFormat(format)
	if err != nil {
		return nil, err
	}

	switch format {
	case "csv":
		return ExportToCSV(p)
	case "markdown":
		return ExportToMarkdown(p, "")
	case "m3u":
		return ExportToM3U(p)
	case "txt":
		return ExportToText(p)
	default:
		return ToJSON(p)
	}
}

// ExportToCSV converts a Playlist to CSV format with columns: Position, ID, Title, Author, URL, Thumbnail
func ExportToCSV(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Author", "URL", "Thumbnail"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range p.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(track.ID, 10),
			track.Title,
			track.Author,
			track.URL,
			track.Thumb,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a Playlist to Markdown format with optional cover image
func ExportToMarkdown(p *models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Playlist %d\n\n", p.ID))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	buf.WriteString(fmt.Sprintf("**Link**: %s\n", p.Link))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d\n\n", len(p.Tracks)))

	buf.WriteString("## Tracks\n\n")
	for i, track := range p.Tracks {
		buf.WriteString(fmt.Sprintf("%d. [%s - %s](%s)\n", i+1, track.Author, track.Title, track.URL))
	}

	return buf.Bytes(), nil
}

// ExportToM3U converts a Playlist to an extended M3U playlist of watch URLs
func ExportToM3U(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	buf.WriteString(fmt.Sprintf("#PLAYLIST:%s\n", p.Link))
	for _, track := range p.Tracks {
		buf.WriteString(fmt.Sprintf("#EXTINF:-1,%s - %s\n", track.Author, track.Title))
		if track.Thumb != "" {
			buf.WriteString(fmt.Sprintf("#EXTIMG:%s\n", track.Thumb))
		}
		buf.WriteString(track.URL + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a Playlist to plain text format
func ExportToText(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", p.Link))
	buf.WriteString(fmt.Sprintf("Tracks: %d\n\n", len(p.Tracks)))

	for i, track := range p.Tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Author, track.Title))
	}

	return buf.Bytes(), nil
}

// ToJSON renders v as indented JSON with a trailing newline.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteJSON writes v to path as indented JSON.
func WriteJSON(v any, path string) error {
	data, err := ToJSON(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	return nil
}

// WriteExport renders p in format and writes it to path.
//
// An empty path defaults to playlist_{id} with the format's extension in the working directory.
func WriteExport(p *models.Playlist, format, path string) (string, error) {
	format, err := NormalizeFormat(format)
	if err != nil {
		return "", err
	}

	if path == "" {
		path = fmt.Sprintf("playlist_%d%s", p.ID, extensions[format])
	}

	data, err := Export(p, format)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s: %w", format, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports a playlist to Markdown format in a dedicated directory.
//
// Directory name defaults to playlist_{id}. The cover is optional; when given it is saved
// as cover.jpg and referenced from the README.
// Creates a directory structure: {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(p *models.Playlist, outputDir string, cover []byte) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = fmt.Sprintf("playlist_%d", p.ID)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if len(cover) > 0 {
		coverImageFilename = "cover.jpg"
		coverImagePath := filepath.Join(outputDir, coverImageFilename)
		if err := os.WriteFile(coverImagePath, cover, 0644); err != nil {
			return nil, fmt.Errorf("failed to save cover image: %w", err)
		}
		result.CoverImage = coverImagePath
		result.Files = append(result.Files, coverImagePath)
	}

	mdData, err := ExportToMarkdown(p, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}
