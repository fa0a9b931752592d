// redact маскирует чувствительные данные перед записью в лог:
// e-mail пользователя при входе/регистрации и access/refresh-токены.
package redact

import "strings"

// Email маскирует e-mail для логирования.
//
// Правила:
//   - строка должна содержать ровно один '@', иначе возвращается "***";
//   - локальная часть сокращается до первых двух рун + "***";
//   - если локальная часть не длиннее двух рун — "***@<domain>";
//   - домен сохраняется как есть.
func Email(s string) string {
	if strings.Count(s, "@") != 1 {
		return "***"
	}

	i := strings.IndexByte(s, '@')
	local, domain := s[:i], s[i+1:]

	lr := []rune(local)
	if len(lr) > 2 {
		local = string(lr[:2]) + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}

// tokenTail — сколько последних символов токена допустимо показать.
const tokenTail = 4

// Token маскирует токен: пустой остаётся пустым (видно, что его нет),
// длинный превращается в "***" + последние 4 символа, короткий — в заглушку.
func Token(s string) string {
	if s == "" {
		return ""
	}

	if len(s) < 3*tokenTail {
		return "[REDACTED_TOKEN]"
	}

	return "***" + s[len(s)-tokenTail:]
}
