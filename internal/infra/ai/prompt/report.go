package prompt

import (
	"fmt"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
)

// BuildReportPrompt renders the full research instruction for one company.
// The year bounds the news window and appears in the section headers.
func BuildReportPrompt(company string, lang report.Language, year int) string {
	if lang == report.LanguageEN {
		return fmt.Sprintf(reportPromptEN, company, year)
	}
	return fmt.Sprintf(reportPromptZH, company, year)
}

// FallbackReport replaces an empty model answer.
func FallbackReport(lang report.Language) string {
	if lang == report.LanguageEN {
		return "Failed to generate report."
	}
	return "未能生成报告。"
}

const reportPromptZH = `你是一名专业的战术通信行业全球市场情报分析师。

# 任务
请针对竞品公司 "%[1]s" 进行全面检索与信息归纳，整理成中文报告。

# 检索范围与策略 (严格执行)
1. 检索该公司的官方网站新闻中心 (Newsroom/Press Releases) 以及 Google 搜索结果。
2. 使用以下关键词组合检索 %[2]d 年 (1月1日至今) 的信息：
   - "%[1]s"
   - "%[1]s" + "release"
   - "%[1]s" + "news"
   - "%[1]s" + "announcement"
   - "%[1]s" + "launch"
3. 仅收录 %[2]d 年发布的英文新闻与公告。
4. 排除社交媒体、旧闻、非核心财务波动、广告及传闻。

# 元数据
输出的第一行必须是该公司主官网域名，格式严格如下（不要加代码块）：
DOMAIN_START{"domain": "example.com"}DOMAIN_END

# 输出格式 (Markdown)
请严格按照以下格式输出每一条结果。
注意：不要使用 Markdown 的超链接语法 [标题](URL)，直接在“原文链接：”后面附上完整的 URL 文本。

### 公司介绍
（用 3-5 句话概述公司背景、总部、成立/合并历史、核心定位）

### 业务范围
- （要点 1）
- （要点 2）
- （要点 3）

### 竞争格局
#### 投资并购
- （列出 %[2]d 年内的重要投资/剥离/并购，注明金额或范围）
#### 全球合作
- （列出 %[2]d 年内的重要合作伙伴关系与典型客户）

### 展会与行业活动
- （列出 %[2]d 年内相关的参展、演示、落地活动等，包含地点/时间）

### 市场营销
- （列出 %[2]d 年内相关的重大市场营销活动）

### %[2]d年公司新闻与动态
#### [年份-月份-日期] 标题内容
- 原文链接：(直接写出完整 URL)
- 核心摘要：概述新闻内容，标注国家和产品、行业。

(按时间倒序排列 %[2]d 年的新闻条目)

### 分析与展望
- 行业需求与周期判断（结合公司产品组合与地缘环境）
- 技术/产能与竞争态势（与主要竞争对手的对比）
- 国际化布局与本地化协同
`

const reportPromptEN = `You are a professional global market intelligence analyst for the tactical communications industry.

# Task
Research the competitor "%[1]s" thoroughly and summarise the findings as an English report.

# Search scope and strategy (follow strictly)
1. Search the company's official newsroom / press releases and Google Search results.
2. Use these keyword combinations for %[2]d (January 1 to today):
   - "%[1]s"
   - "%[1]s" + "release"
   - "%[1]s" + "news"
   - "%[1]s" + "announcement"
   - "%[1]s" + "launch"
3. Only include news and announcements published in %[2]d.
4. Exclude social media, stale news, non-core financial fluctuations, advertising and rumours.

# Metadata
The very first line of the output must carry the company's primary website domain, exactly in this form (no code fence):
DOMAIN_START{"domain": "example.com"}DOMAIN_END

# Output format (Markdown)
Follow this format strictly for every entry.
Note: do not use Markdown link syntax [title](URL); write the full URL as plain text right after "Original Link:".

### Company Overview
(3-5 sentences on background, headquarters, founding/merger history and core positioning)

### Business Scope
- (point 1)
- (point 2)
- (point 3)

### Competitive Landscape
#### M&A and Investments
- (major investments, divestments or acquisitions in %[2]d, with amount or scope)
#### Global Partnerships
- (major partnerships and reference customers in %[2]d)

### Events & Exhibitions
- (trade shows, demonstrations and field events in %[2]d, with place and date)

### Marketing
- (major marketing campaigns in %[2]d)

### %[2]d News & Updates
#### [YYYY-MM-DD] Title
- Original Link: (full URL)
- Core Summary: what happened, naming the country, product and industry.

(list %[2]d news in reverse chronological order)

### Analysis & Outlook
- Industry demand and cycle (in light of the product portfolio and geopolitics)
- Technology, capacity and competitive position versus the main rivals
- International footprint and local collaboration
`
