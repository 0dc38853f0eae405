package components

import (
	"regexp"
	"strings"

	"github.com/cyberforge/cyberforge/ui/styles"
)

var (
	orderedItemRe   = regexp.MustCompile(`^(\d+)\.\s+(.*)`)
	orderedPrefixRe = regexp.MustCompile(`^\d+\.\s`)
	inlineCodeRe    = regexp.MustCompile("```([^`]|`[^`]|``[^`])*```|``[^`]*``|`[^`]*`")
	linkRe          = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	boldRe          = regexp.MustCompile(`\*\*([^*]|\*[^*])*\*\*`)
	italicUnderRe   = regexp.MustCompile(`_([^_]+)_`)
	italicStarRe    = regexp.MustCompile(`\*([^*]+)\*`)
	paragraphRe     = regexp.MustCompile(`\n\s*\n`)
)

// RenderMarkdown applies basic markdown rendering to assistant replies and
// analysis reports.
func RenderMarkdown(text string) string {
	text = normalizeMarkdownNewlines(text)

	var result strings.Builder
	inCodeBlock := false

	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			continue
		}
		if inCodeBlock {
			result.WriteString(styles.CodeBlockStyle().Render(line) + "\n")
			continue
		}

		// Headings lose their marks.
		if title, ok := cutHeading(line); ok {
			result.WriteString(styles.BoldStyle().Render(processInlineMarkdown(title)) + "\n")
			continue
		}

		if item, ok := strings.CutPrefix(line, "- "); ok {
			result.WriteString(styles.ListStyle().Render("• "+processInlineMarkdown(item)) + "\n")
			continue
		}
		if item, ok := strings.CutPrefix(line, "* "); ok {
			result.WriteString(styles.ListStyle().Render("• "+processInlineMarkdown(item)) + "\n")
			continue
		}
		if m := orderedItemRe.FindStringSubmatch(line); len(m) == 3 {
			result.WriteString(styles.ListStyle().Render(m[1]+". "+processInlineMarkdown(m[2])) + "\n")
			continue
		}

		result.WriteString(processInlineMarkdown(line) + "\n")
	}

	return strings.TrimSuffix(result.String(), "\n")
}

func cutHeading(line string) (string, bool) {
	for _, prefix := range []string{"#### ", "### ", "## ", "# "} {
		if title, ok := strings.CutPrefix(line, prefix); ok {
			return title, true
		}
	}
	return "", false
}

// processInlineMarkdown handles code spans first so their content is left
// alone, then links, then emphasis.
func processInlineMarkdown(line string) string {
	line = inlineCodeRe.ReplaceAllStringFunc(line, func(match string) string {
		return styles.CodeBlockStyle().UnsetMarginLeft().Render(strings.Trim(match, "`"))
	})

	line = linkRe.ReplaceAllStringFunc(line, func(match string) string {
		m := linkRe.FindStringSubmatch(match)
		if len(m) != 3 {
			return match
		}
		return styles.LinkStyle().Render(processNestedFormatting(m[1]))
	})

	return processNestedFormatting(line)
}

func processNestedFormatting(text string) string {
	text = boldRe.ReplaceAllStringFunc(text, func(match string) string {
		return styles.BoldStyle().Render(processItalicText(strings.Trim(match, "*")))
	})
	return processItalicText(text)
}

func processItalicText(line string) string {
	line = italicUnderRe.ReplaceAllStringFunc(line, func(match string) string {
		return styles.ItalicStyle().Render(strings.Trim(match, "_"))
	})
	return italicStarRe.ReplaceAllStringFunc(line, func(match string) string {
		return styles.ItalicStyle().Render(strings.Trim(match, "*"))
	})
}

// normalizeMarkdownNewlines joins soft-wrapped lines inside a paragraph and
// keeps one newline between paragraphs. Headings, list items, fences and
// quotes always stay on their own line.
func normalizeMarkdownNewlines(text string) string {
	var paragraphs []string
	for _, paragraph := range paragraphRe.Split(text, -1) {
		var lines []string
		inFence := false
		for _, line := range strings.Split(strings.TrimSpace(paragraph), "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "```") {
				inFence = !inFence
				lines = append(lines, trimmed)
				continue
			}
			if inFence {
				lines = append(lines, line)
				continue
			}
			if trimmed == "" {
				continue
			}
			if len(lines) > 0 && !isSpecialFormattingLine(trimmed) && !isSpecialFormattingLine(lines[len(lines)-1]) {
				lines[len(lines)-1] += " " + trimmed
				continue
			}
			lines = append(lines, trimmed)
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n")
}

func isSpecialFormattingLine(line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, "#"),
		strings.HasPrefix(line, "- "),
		strings.HasPrefix(line, "* "),
		strings.HasPrefix(line, "```"),
		strings.HasPrefix(line, "> "):
		return true
	}
	return orderedPrefixRe.MatchString(line)
}
