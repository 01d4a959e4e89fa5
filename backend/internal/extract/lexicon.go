package extract

import "strings"

// ============================================================================
// Word lists
// ============================================================================

var stopWords = newWordSet(
	"a", "an", "the", "and", "or", "but", "is", "are", "was", "were",
	"in", "on", "at", "to", "for", "with", "by", "about", "like", "through",
	"over", "before", "between", "after", "since", "without", "of", "from", "as", "into",
	"during", "including", "until", "against", "among", "throughout", "despite", "towards", "upon", "concerning",
	"的", "地", "得", "了", "在", "是", "我", "有", "和", "就",
	"不", "人", "都", "一", "一个", "上", "也", "很", "到", "说",
	"要", "去", "你", "会", "着", "没有", "看", "好", "自己", "这",
)

// Verbs, modals and filler that the noun heuristic would otherwise accept.
var nonNounWords = newWordSet(
	"make", "do", "get", "take", "see", "know", "think", "go", "say", "come",
	"use", "find", "give", "tell", "work", "call", "try", "ask", "need", "feel",
	"become", "leave", "put", "mean", "keep", "let", "begin", "seem", "help",
	"would", "could", "should", "will", "can", "may", "might", "must",
	"做", "去", "看", "说", "想", "用", "来", "给", "找", "吃",
	"example", "info", "accessibility", "com", "test", "sample", "demo",
	"示例", "信息", "测试", "演示", "例子",
)

var dateTimeWords = newWordSet(
	"date", "time", "year", "month", "day", "hour", "minute", "second",
	"january", "february", "march", "april", "may", "june", "july",
	"august", "september", "october", "november", "december",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"日期", "时间", "年", "月", "日", "小时", "分钟", "秒",
	"一月", "二月", "三月", "四月", "五月", "六月", "七月", "八月", "九月", "十月", "十一月", "十二月",
	"星期一", "星期二", "星期三", "星期四", "星期五", "星期六", "星期日",
	"周一", "周二", "周三", "周四", "周五", "周六", "周日",
)

// domainKeywords are matched as substrings of an entity for blogs with the given tag
var domainKeywords = map[string][]string{
	"html": {
		"元素", "标签", "语义化", "结构", "属性", "文档", "节点", "布局", "标准", "兼容性",
		"head", "body", "div", "span", "section", "header", "footer", "article", "nav", "main",
		"aside", "meta", "title", "lang", "charset", "doctype", "html5",
	},
	"css": {
		"样式", "选择器", "布局", "盒模型", "flex", "grid", "动画", "过渡", "媒体查询",
		"class", "id", "color", "font", "margin", "padding", "border", "display", "position", "float", "css3",
	},
	"javascript": {
		"变量", "函数", "对象", "数组", "事件", "回调", "异步", "promise", "原型", "作用域", "闭包",
		"this", "class", "let", "const", "es6", "模块", "导入", "导出", "箭头函数",
		"async", "await", "json", "dom", "bom", "window", "document",
	},
}

// techDictionary entries must match an entity exactly (case-insensitive)
var techDictionary = newWordSet(
	"html", "head", "body", "div", "span", "section", "header", "footer", "article", "nav", "main",
	"aside", "meta", "title", "lang", "charset", "doctype", "html5",
	"css", "flex", "flexbox", "grid", "animation", "transition", "media query", "class", "id", "color", "font",
	"margin", "padding", "border", "display", "position", "float", "css3",
	"javascript", "js", "variable", "function", "object", "array", "event", "callback", "async", "promise",
	"prototype", "scope", "closure", "this", "let", "const", "es6", "module", "import", "export",
	"arrow function", "await", "json", "dom", "bom", "window", "document",
	"react", "vue", "angular", "node", "express", "mongodb", "mysql", "postgresql", "sql", "nosql",
	"rest", "api", "graphql", "frontend", "backend", "fullstack", "devops", "database", "cloud", "aws",
	"azure", "docker", "kubernetes", "serverless", "microservice", "framework", "library", "component",
	"interface", "type", "algorithm", "data structure", "git", "github", "gitlab", "bitbucket", "agile", "scrum",
	"前端", "后端", "全栈", "数据库", "云计算", "微服务", "框架", "库", "组件", "函数", "类",
	"对象", "接口", "算法", "数据结构", "版本控制",
)

var commonTechTerms = newWordSet(
	"html", "css", "javascript", "js", "typescript", "ts", "react", "vue", "angular",
	"node", "express", "mongodb", "mysql", "postgresql", "sql", "nosql", "rest", "api",
	"graphql", "frontend", "backend", "fullstack", "devops", "database", "cloud",
	"aws", "azure", "docker", "kubernetes", "serverless", "microservice", "framework",
	"library", "component", "function", "class", "object", "interface", "type",
	"algorithm", "data structure", "git", "github", "gitlab", "bitbucket", "agile", "scrum",
	"前端", "后端", "全栈", "数据库", "云计算", "微服务", "框架", "库", "组件", "函数", "类",
	"对象", "接口", "算法", "数据结构", "版本控制",
)

// genericFragments disqualify any token or phrase that contains them
var genericFragments = []string{
	"example", "test", "demo", "info", "示例", "演示", "click", "here", "点击", "这里",
}

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	s := make(wordSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// has looks the word up case-insensitively
func (s wordSet) has(word string) bool {
	_, ok := s[strings.ToLower(word)]
	return ok
}

// IsStopWord reports whether word is in the bilingual stop list
func IsStopWord(word string) bool {
	return stopWords.has(word)
}

// IsGenericOrExample reports placeholder vocabulary ("example", "click here", "示例" ...)
func IsGenericOrExample(text string) bool {
	lower := strings.ToLower(text)
	if lower == "com" || lower == "accessibility" {
		return true
	}
	for _, frag := range genericFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}
