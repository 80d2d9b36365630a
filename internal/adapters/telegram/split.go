package telegram

import "strings"

const messageLimit = 4096

// SplitMessage режет текст на части не длиннее лимита Telegram.
// Целые блоки, разделённые пустой строкой, не разрываются, пока помещаются в лимит.
func SplitMessage(text string) []string {
	return splitBlocks(text, messageLimit)
}

func splitBlocks(text string, limit int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if runeLen(trimmed) <= limit {
		return []string{trimmed}
	}

	var (
		parts   []string
		current strings.Builder
		curLen  int
	)
	flush := func() {
		if curLen > 0 {
			parts = append(parts, current.String())
			current.Reset()
			curLen = 0
		}
	}
	for _, block := range strings.Split(trimmed, "\n\n") {
		block = strings.Trim(block, "\n")
		if block == "" {
			continue
		}
		n := runeLen(block)
		if n > limit {
			flush()
			parts = append(parts, splitLong(block, limit)...)
			continue
		}
		sep := 0
		if curLen > 0 {
			sep = 2
		}
		if curLen+sep+n > limit {
			flush()
			sep = 0
		}
		if sep > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(block)
		curLen += sep + n
	}
	flush()
	return parts
}

// splitLong режет один длинный блок, предпочитая границы строк.
func splitLong(block string, limit int) []string {
	runes := []rune(block)
	var parts []string
	for len(runes) > 0 {
		if len(runes) <= limit {
			parts = append(parts, string(runes))
			break
		}
		cut := limit
		for i := limit; i > limit/2; i-- {
			if runes[i-1] == '\n' {
				cut = i
				break
			}
		}
		chunk := strings.Trim(string(runes[:cut]), "\n")
		if chunk != "" {
			parts = append(parts, chunk)
		}
		runes = runes[cut:]
		for len(runes) > 0 && runes[0] == '\n' {
			runes = runes[1:]
		}
	}
	return parts
}

func runeLen(s string) int {
	return len([]rune(s))
}
