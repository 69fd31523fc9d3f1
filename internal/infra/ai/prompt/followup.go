package prompt

import (
	"fmt"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
)

// BuildFollowUpInstruction is the system context for report-scoped chat.
func BuildFollowUpInstruction(content string, lang report.Language) string {
	if lang == report.LanguageEN {
		return fmt.Sprintf(followUpEN, content)
	}
	return fmt.Sprintf(followUpZH, content)
}

// FallbackAnswer is shown when the chat model returns no text.
func FallbackAnswer(lang report.Language) string {
	if lang == report.LanguageEN {
		return "Sorry, I could not answer that question."
	}
	return "抱歉，我无法回答这个问题。"
}

const followUpZH = `你是一名战术通信行业的市场情报分析师。用户正在阅读下面这份情报报告，并会就报告内容继续提问。

# 报告全文
%s

# 回答要求
- 用中文简洁、专业地回答。
- 优先依据报告内容；需要最新信息时使用 Google 搜索补充。
- 引用链接时直接写出完整 URL，不要使用 [标题](URL) 语法。
`

const followUpEN = `You are a market intelligence analyst for the tactical communications industry. The user is reading the intelligence report below and will ask follow-up questions about it.

# Full report
%s

# Answering rules
- Answer concisely and professionally in English.
- Prefer the report's content; use Google Search when fresher facts are needed.
- When citing links write the full URL, never [title](URL) markup.
`
