package tool

import (
	"fmt"
	"strings"

	"github.com/lisa-chat/lisa/catalog"
)

const svgMimeType = "image/svg+xml"

// generateImage synthesizes a deterministic placeholder image for the prompt.
// When anchorTitle matches a catalog record its title is rendered as the
// style caption. No network call is made; the output is stable for a given
// input so turns remain reproducible.
func generateImage(videos []catalog.Video, prompt, anchorTitle string) Result {
	if strings.TrimSpace(prompt) == "" {
		return ErrorResult{Err: NewError("generateImage", "prompt must not be empty", CodeValidationError)}
	}

	caption := "Generated concept"
	if anchorTitle != "" {
		q := strings.ToLower(anchorTitle)
		for i := range videos {
			if strings.Contains(strings.ToLower(videos[i].Title), q) {
				caption = "In the style of: " + truncateLabel(videos[i].Title, 40)
				break
			}
		}
	}

	svg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="640" height="360" viewBox="0 0 640 360">
  <defs>
    <linearGradient id="bg" x1="0" y1="0" x2="1" y2="1">
      <stop offset="0%%" stop-color="#4f46e5"/>
      <stop offset="100%%" stop-color="#9333ea"/>
    </linearGradient>
  </defs>
  <rect width="640" height="360" fill="url(#bg)"/>
  <text x="320" y="170" text-anchor="middle" font-family="sans-serif" font-size="22" fill="#ffffff">%s</text>
  <text x="320" y="210" text-anchor="middle" font-family="sans-serif" font-size="14" fill="#e0e0ff">%s</text>
</svg>`, escapeXML(truncateLabel(prompt, 40)), escapeXML(caption))

	return Image{Prompt: prompt, Data: []byte(svg), MimeType: svgMimeType}
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string { return xmlReplacer.Replace(s) }
