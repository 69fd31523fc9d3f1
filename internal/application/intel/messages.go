package intel

import "github.com/bryanwahyu/market-intel/internal/domain/report"

// Messages holds user-facing strings for one language.
type Messages struct {
	AnalysisFailed string
	FollowUpFailed string
	Placeholder    string
}

var messages = map[report.Language]Messages{
	report.LanguageZH: {
		AnalysisFailed: "分析过程中发生错误，请稍后再试。",
		FollowUpFailed: "[错误] 暂时无法回答该问题，请稍后再试。",
		Placeholder:    "Elbit Systems",
	},
	report.LanguageEN: {
		AnalysisFailed: "An error occurred during analysis. Please try again.",
		FollowUpFailed: "[error] Could not answer this question. Please try again.",
		Placeholder:    "Elbit Systems",
	},
}

func MessagesFor(lang report.Language) Messages {
	if m, ok := messages[lang]; ok {
		return m
	}
	return messages[report.DefaultLanguage]
}
