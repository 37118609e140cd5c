package summarizer

import (
	"fmt"
	"strings"

	"github.com/dywsy21/Cecilia/internal/models"
	"github.com/dywsy21/Cecilia/internal/pkg/push"
)

// Discord-style embed limits enforced by the pusher.
const (
	maxEmbedTitle       = 256
	maxEmbedDescription = 4096
	maxEmbedFieldValue  = 1024
)

// embedColors cycles per paper so consecutive cards are visually
// distinct.
var embedColors = []int{
	0x5865F2, // blurple
	0x57F287, // green
	0xFEE75C, // yellow
	0xEB459E, // fuchsia
	0xED4245, // red
	0x3498DB, // blue
}

// buildHeaderMessage summarizes the run before the per-paper cards.
func buildHeaderMessage(result *models.DeliveryResult, model string) push.Message {
	topic := topicLabel(result.Category, result.Topic)
	desc := fmt.Sprintf("共 %d 篇论文（新增 %d 篇，已缓存 %d 篇）",
		len(result.Papers), result.NewCount, result.CachedCount)
	if result.SkippedCount > 0 {
		desc += fmt.Sprintf("，%d 篇处理失败已跳过", result.SkippedCount)
	}
	if result.SendAll {
		desc += "\n模式：重发全部"
	}

	footer := result.StartedAt.Format("2006-01-02")
	if model != "" {
		footer += " · " + model
	}

	return push.Message{
		Embed: &push.Embed{
			Title:       truncateWords(fmt.Sprintf("📚 %s 论文摘要", topic), maxEmbedTitle),
			Description: desc,
			Color:       0x5865F2,
			Footer:      &push.EmbedFooter{Text: footer},
		},
	}
}

// buildPaperMessage renders one paper as an embed card.
func buildPaperMessage(index int, paper models.DeliveredPaper) push.Message {
	entry := paper.Entry
	embed := &push.Embed{
		Title:       truncateWords(fmt.Sprintf("%d. %s", index+1, entry.Title), maxEmbedTitle),
		Description: truncateWords(entry.Summary, maxEmbedDescription),
		Color:       embedColors[index%len(embedColors)],
	}

	if len(entry.Authors) > 0 {
		embed.Fields = append(embed.Fields, push.EmbedField{
			Name:  "作者",
			Value: truncateWords(strings.Join(entry.Authors, ", "), maxEmbedFieldValue),
		})
	}
	if len(entry.Categories) > 0 {
		embed.Fields = append(embed.Fields, push.EmbedField{
			Name:   "分类",
			Value:  truncateWords(strings.Join(entry.Categories, ", "), maxEmbedFieldValue),
			Inline: true,
		})
	}
	if entry.PDFURL != "" {
		embed.Fields = append(embed.Fields, push.EmbedField{
			Name:   "PDF",
			Value:  entry.PDFURL,
			Inline: true,
		})
	}
	return push.Message{Embed: embed}
}

func topicLabel(category, topic string) string {
	if category == "" || strings.EqualFold(category, "all") {
		return topic
	}
	return category + "." + topic
}

// truncateWords cuts s to at most limit runes, preferring a word
// boundary and appending an ellipsis when anything was dropped.
func truncateWords(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	cut := string(runes[:limit-1])
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ") + "…"
}
