package survey

// Option labels double as callback payloads, so they stay stable per locale.

var levelLabels = [][2]string{
	{"С нуля 🆕", "Beginner 🆕"},
	{"Начинающий (A1–A2) 🟢", "Elementary (A1–A2) 🟢"},
	{"Средний (B1–B2) 🟡", "Intermediate (B1–B2) 🟡"},
	{"Продвинутый (C1–C2) 🟣", "Advanced (C1–C2) 🟣"},
	{"Не уверен(а) ❓", "Not sure ❓"},
}

var goalLabels = [][2]string{
	{"Общий язык 🌐", "General language 🌐"},
	{"Разговорный 🗣️", "Conversational 🗣️"},
	{"Для путешествий ✈️", "For travel ✈️"},
	{"Бизнес-язык 💼", "Business language 💼"},
	{"Подготовка к экзаменам 🎓", "Exam preparation 🎓"},
	{"Для детей 👶", "For children 👶"},
	{"Другое 📝", "Other 📝"},
}

var formatLabels = [][2]string{
	{"Индивидуальный", "Individual"},
	{"Парный", "Pair"},
	{"Группа (от 3х человек)", "Group (3+ people)"},
	{"Онлайн", "Online"},
}

var expectationLabels = [][2]string{
	{"Разнообразие слов и выражений 📝", "Variety of words and expressions 📝"},
	{"Преодоление плато 🧗", "Overcoming plateau 🧗"},
	{"Интересные задания 🎲", "Interesting tasks 🎲"},
	{"Обратную связь 💬", "Feedback 💬"},
	{"Лёгкость в общении 💡", "Ease in communication 💡"},
	{"Другое 📝", "Other 📝"},
}

var startDateLabels = [][2]string{
	{"Прямо сейчас 🚀", "Right now 🚀"},
	{"На следующей неделе 📅", "Next week 📅"},
	{"Через пару недель ⏳", "In a couple of weeks ⏳"},
	{"Ещё не решил(а) 🤔", "Haven't decided yet 🤔"},
}

func pick(labels [][2]string, lang string) []string {
	idx := 0
	if lang == "en" {
		idx = 1
	}
	out := make([]string, len(labels))
	for i, pair := range labels {
		out[i] = pair[idx]
	}
	return out
}

func levelOptions(lang string) []string       { return pick(levelLabels, lang) }
func goalOptions(lang string) []string        { return pick(goalLabels, lang) }
func formatOptions(lang string) []string      { return pick(formatLabels, lang) }
func expectationOptions(lang string) []string { return pick(expectationLabels, lang) }
func startDateOptions(lang string) []string   { return pick(startDateLabels, lang) }
