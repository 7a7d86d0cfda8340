package ai

import "github.com/custodia-labs/digest-core/internal/core/domain"

const markdownExtractionPrompt = `Convert the attached PDF into clean Markdown.
Preserve headings, lists and tables. Return only the Markdown.`

const plainSummaryPrompt = `Summarize the following document in a few short paragraphs.
Return plain text only.

`

const markdownSummaryPrompt = `Summarize the following Markdown document.
Return the summary as Markdown with a short heading and bullet points.

`

// summaryPrompt builds the summarization request for text in mode
func summaryPrompt(text string, mode domain.ExtractionMode) string {
	if mode == domain.ExtractionModeMarkdown {
		return markdownSummaryPrompt + text
	}
	return plainSummaryPrompt + text
}
