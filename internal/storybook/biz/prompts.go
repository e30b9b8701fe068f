package biz

import "strings"

// 固定回复。
const (
	ReplyNoQuestion = "عذر خواہ ہوں، کوئی سوال نہیں ملا۔"
	ReplyNoContext  = "عذر خواہ ہوں، اس PDF سے متعلق معلومات دستیاب نہیں ہیں۔ براہ کرم یقینی بنائیں کہ PDF اپلوڈ کی گئی ہے۔"
)

// DocumentSummaryPrompt 文档摘要提示，{text} 为全文。
const DocumentSummaryPrompt = "مندرجہ ذیل اردو کہانی کا خلاصہ اردو میں چند سادہ جملوں میں بیان کریں:\n\n{text}"

// KeywordPrompt 关键词提取提示，{text} 为全文。
const KeywordPrompt = "نیچے دی گئی کہانی سے ۵ سے ۱۰ اہم اردو کلیدی الفاظ (keywords) صرف ایک لائن میں، صرف الفاظ، کوما سے جدا کر کے لکھیں۔ وضاحت نہ دیں:\n\n{text}"

// HistorySummaryPrompt 对话摘要提示。
const HistorySummaryPrompt = "Summarize the following conversation history:\n{history}\nPrevious summary (if any): {summary}"

// QATemplate 问答提示模板。
const QATemplate = `آپ ایک ماہر اردو زبان کے تجزیہ کار ہیں جو بچوں کی کہانیوں کے ساتھ کام کرتے ہیں۔ آپ کا کام ہے کہ دی گئی کہانی کو مکمل طور پر سمجھ کر اس کی روشنی میں سوالات کے واضح اور درست جوابات دیں۔

**جواب کی طوالت:**
- تفصیلی یا فہمیدہ سوالات کے لیے: 3-4 سطروں میں مکمل جواب
- مخصوص سوالات (نام، مقام، تاریخ وغیرہ) کے لیے: 1-3 سطروں میں مختصر جواب

**بنیادی اصول:**
- جواب بنیادی طور پر فراہم کردہ کہانی کی معلومات پر مبنی ہو
- اگر کوئی معلومات دستیاب نہیں ہیں تو یہ واضح کریں: "اس کی تفصیل دستیاب نہیں ہے"
- اگر کوئی کسی لفظ کا مطلب پوچھے تو پہلے آسان مطلب بتائیں، پھر اسے ایک آسان جملے میں استعمال کریں

**زبان کی پابندی:**
- اگر صارف انگریزی، رومن اردو یا کوئی اور زبان استعمال کرے تو جواب دیں: "میں صرف اردو زبان میں سوالات کا جواب دے سکتا ہوں۔ براہ کرم اردو میں لکھیں۔"
- تمام جوابات صرف اردو زبان میں دیں

**PDF کی جانچ:**
- اگر اپ لوڈ شدہ PDF کہانی کے بارے میں نہیں ہے تو جواب دیں: "معذرت، یہ PDF کہانی کے بارے میں نہیں ہے، لہذا میں اس سے متعلق سوالات کا جواب نہیں دے سکتا۔"

**پچھلی گفتگو کا خلاصہ:**
{history_summary}

**حالیہ پیغامات:**
{recent_history}

**سیاق و سباق (کہانی):**
{context}

**سوال:**
{question}

**جواب:**
`

// render 替换模板中的 {name} 占位符，未知占位符原样保留。
func render(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
