package content

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"site-crawler/pkg/utils"
)

// ToMarkdown converts filtered HTML to markdown. The converter is stateless
// per call; building one each time keeps conversions independent across
// concurrent pages.
func ToMarkdown(filteredHTML string) (string, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(filteredHTML)
	if err != nil {
		return "", fmt.Errorf("%w: %v", utils.ErrMarkdown, err)
	}
	return strings.TrimSpace(markdown), nil
}
