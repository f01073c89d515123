package render

import (
	"bufio"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/mdconvert/internal/config"
)

// PageBreakHTML is the marker the print stylesheet turns into a page break.
const PageBreakHTML = `<div class="page-break"></div>`

var pageBreakPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<!--\s*page-break\s*-->`),
	regexp.MustCompile("(?i)```page-break\n```"),
	regexp.MustCompile(`(?i)<page-break>`),
	regexp.MustCompile(`(?i)---\s*\n\s*\{\.page-break\}`),
}

var (
	tocHeading = regexp.MustCompile(`(?i)^#{2,3}\s+table\s+of\s+contents\s*$`)
	anyHeading = regexp.MustCompile(`^#{1,3}\s`)
	blankRuns  = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// Preprocess applies the source rewrites for the given format and profile:
// print profiles lose their "Table of contents" sections and page-break
// markers become PageBreakHTML for PDF or disappear for ebooks.
func Preprocess(content string, format config.Format, profile config.Profile) string {
	if profile.Print {
		content = FilterTableOfContents(content)
	}
	content, _ = ProcessPageBreaks(content, format.IsEbook())
	return content
}

// ProcessPageBreaks normalizes the supported page-break markers. With remove
// set they are deleted, otherwise replaced by PageBreakHTML. It returns the
// rewritten content and the number of page breaks in it.
func ProcessPageBreaks(content string, remove bool) (string, int) {
	replacement := PageBreakHTML
	if remove {
		replacement = ""
		content = strings.ReplaceAll(content, PageBreakHTML, "")
	}
	for _, re := range pageBreakPatterns {
		content = re.ReplaceAllLiteralString(content, replacement)
	}
	return content, strings.Count(content, PageBreakHTML)
}

// FilterTableOfContents drops level 2 and 3 "Table of contents" sections up to
// the next heading of level 1 to 3. Hand-written tables of contents are
// redundant on paper and their anchors do not survive printing.
func FilterTableOfContents(content string) string {
	var b strings.Builder
	skipping := false
	changed := false

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if skipping {
			if !anyHeading.MatchString(line) {
				continue
			}
			skipping = false
		}
		if tocHeading.MatchString(strings.TrimRight(line, " \t")) {
			skipping = true
			changed = true
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		first = false
	}
	if !changed {
		return content
	}
	if strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	return blankRuns.ReplaceAllString(b.String(), "\n\n")
}
