package guide

import "strings"

// crisisPhrases 危机语言关键词表
// 宁可误报不可漏报：命中即标记，由响应层给出支持性回复
var crisisPhrases = []string{
	"hurt myself", "kill myself", "end my life", "suicide", "self-harm",
	"want to die", "better off dead", "no point living",
	"伤害自己", "自杀", "结束生命", "想死", "不想活", "活着没意思",
}

// DetectCrisis 检测消息中的危机语言
// 返回是否命中以及命中的短语；纯函数，无副作用
func DetectCrisis(message string) (bool, string) {
	lower := strings.ToLower(message)
	for _, phrase := range crisisPhrases {
		if strings.Contains(lower, phrase) {
			return true, phrase
		}
	}
	return false, ""
}
