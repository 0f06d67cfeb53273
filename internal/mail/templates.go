package mail

import "strings"

const (
	LangPolish  = "pl"
	LangEnglish = "en"
)

// NormalizeLang maps any client-supplied language to a supported one.
func NormalizeLang(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case LangPolish:
		return LangPolish
	default:
		return LangEnglish
	}
}

type template struct {
	subject string
	text    string
	html    string
}

var verificationTemplates = map[string]template{
	LangEnglish: {
		subject: "Confirm your email address",
		text: "Hi {{username}},\n\n" +
			"Your verification code is: {{code}}\n\n" +
			"Enter it within 15 minutes to activate your account.\n" +
			"If you did not sign up, you can ignore this message.\n",
		html: `<p>Hi <b>{{username}}</b>,</p>
<p>Your verification code is:</p>
<p style="font-size:24px;letter-spacing:4px"><b>{{code}}</b></p>
<p>Enter it within 15 minutes to activate your account.</p>
<p>If you did not sign up, you can ignore this message.</p>`,
	},
	LangPolish: {
		subject: "Potwierdź swój adres e-mail",
		text: "Cześć {{username}},\n\n" +
			"Twój kod weryfikacyjny to: {{code}}\n\n" +
			"Wpisz go w ciągu 15 minut, aby aktywować konto.\n" +
			"Jeśli to nie Ty zakładałeś konto, zignoruj tę wiadomość.\n",
		html: `<p>Cześć <b>{{username}}</b>,</p>
<p>Twój kod weryfikacyjny to:</p>
<p style="font-size:24px;letter-spacing:4px"><b>{{code}}</b></p>
<p>Wpisz go w ciągu 15 minut, aby aktywować konto.</p>
<p>Jeśli to nie Ty zakładałeś konto, zignoruj tę wiadomość.</p>`,
	},
}

var resetTemplates = map[string]template{
	LangEnglish: {
		subject: "Reset your password",
		text: "Hi {{username}},\n\n" +
			"Open the link below to choose a new password:\n{{link}}\n\n" +
			"The link is valid for 30 minutes.\n" +
			"If you did not request a reset, your password is unchanged.\n",
		html: `<p>Hi <b>{{username}}</b>,</p>
<p><a href="{{link}}">Choose a new password</a></p>
<p>The link is valid for 30 minutes.</p>
<p>If you did not request a reset, your password is unchanged.</p>`,
	},
	LangPolish: {
		subject: "Zresetuj swoje hasło",
		text: "Cześć {{username}},\n\n" +
			"Otwórz poniższy link, aby ustawić nowe hasło:\n{{link}}\n\n" +
			"Link jest ważny przez 30 minut.\n" +
			"Jeśli to nie Ty prosiłeś o reset, Twoje hasło pozostaje bez zmian.\n",
		html: `<p>Cześć <b>{{username}}</b>,</p>
<p><a href="{{link}}">Ustaw nowe hasło</a></p>
<p>Link jest ważny przez 30 minut.</p>
<p>Jeśli to nie Ty prosiłeś o reset, Twoje hasło pozostaje bez zmian.</p>`,
	},
}

// VerificationMessage renders the verification-code email in the given
// language.
func VerificationMessage(lang, to, username, code string) Message {
	tpl := verificationTemplates[NormalizeLang(lang)]
	r := strings.NewReplacer("{{username}}", username, "{{code}}", code)
	return Message{
		To:      to,
		Subject: tpl.subject,
		Text:    r.Replace(tpl.text),
		HTML:    r.Replace(tpl.html),
	}
}

// ResetMessage renders the password-reset email in the given language.
func ResetMessage(lang, to, username, link string) Message {
	tpl := resetTemplates[NormalizeLang(lang)]
	r := strings.NewReplacer("{{username}}", username, "{{link}}", link)
	return Message{
		To:      to,
		Subject: tpl.subject,
		Text:    r.Replace(tpl.text),
		HTML:    r.Replace(tpl.html),
	}
}
