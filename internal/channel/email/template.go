package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/jwalitptl/reminderd/internal/model"
)

// strings per supported language; unknown languages fall back to English.
type translation struct {
	subject       string // fmt verb: title
	urgentSubject string
	intro         string // fmt verb: title
	scheduledFor  string
	rtl           bool
}

var translations = map[string]translation{
	"en": {
		subject:       "Reminder: %s",
		urgentSubject: "URGENT reminder: %s",
		intro:         "This is your reminder for \"%s\".",
		scheduledFor:  "Scheduled for",
	},
	"es": {
		subject:       "Recordatorio: %s",
		urgentSubject: "Recordatorio URGENTE: %s",
		intro:         "Este es tu recordatorio para \"%s\".",
		scheduledFor:  "Programado para",
	},
	"fr": {
		subject:       "Rappel : %s",
		urgentSubject: "Rappel URGENT : %s",
		intro:         "Voici votre rappel pour « %s ».",
		scheduledFor:  "Prévu pour",
	},
	"he": {
		subject:       "תזכורת: %s",
		urgentSubject: "תזכורת דחופה: %s",
		intro:         "זוהי התזכורת שלך עבור \"%s\".",
		scheduledFor:  "מתוזמן ל",
		rtl:           true,
	},
	"ar": {
		subject:       "تذكير: %s",
		urgentSubject: "تذكير عاجل: %s",
		intro:         "هذا تذكيرك لـ \"%s\".",
		scheduledFor:  "مجدول في",
		rtl:           true,
	},
}

func translationFor(language string) translation {
	lang := strings.ToLower(language)
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if t, ok := translations[lang]; ok {
		return t
	}
	return translations["en"]
}

// renderSubject builds the localized subject line; urgent reminders get the
// louder variant.
func renderSubject(reminder *model.Reminder, language string) string {
	t := translationFor(language)
	if reminder.Priority == model.PriorityUrgent {
		return fmt.Sprintf(t.urgentSubject, reminder.Title)
	}
	return fmt.Sprintf(t.subject, reminder.Title)
}

func renderText(reminder *model.Reminder, language string) string {
	t := translationFor(language)
	var b strings.Builder
	fmt.Fprintf(&b, t.intro, reminder.Title)
	b.WriteString("\n\n")
	if reminder.Description != "" {
		b.WriteString(reminder.Description)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "%s: %s\n", t.scheduledFor, reminder.ScheduledTime.Format(time.RFC1123))
	return b.String()
}

func renderHTML(reminder *model.Reminder, language string) string {
	t := translationFor(language)
	dir := "ltr"
	if t.rtl {
		dir = "rtl"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<div dir=%q>", dir)
	b.WriteString("<p>")
	fmt.Fprintf(&b, html.EscapeString(t.intro), html.EscapeString(reminder.Title))
	b.WriteString("</p>")
	if reminder.Description != "" {
		fmt.Fprintf(&b, "<p>%s</p>", html.EscapeString(reminder.Description))
	}
	fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>",
		html.EscapeString(t.scheduledFor),
		reminder.ScheduledTime.Format(time.RFC1123))
	b.WriteString("</div>")
	return b.String()
}
