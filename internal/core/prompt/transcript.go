package prompt

import (
	"fmt"
	"strings"
)

// 對話角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn 對話紀錄中的一則訊息
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ValidateTranscript 檢查對話紀錄：至少一則、角色合法、內容非空、最後一則來自使用者
func ValidateTranscript(turns []ChatTurn) error {
	if len(turns) == 0 {
		return fmt.Errorf("transcript is empty")
	}
	for i, turn := range turns {
		switch strings.ToLower(turn.Role) {
		case RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("turn %d: unknown role %q", i, turn.Role)
		}
		if strings.TrimSpace(turn.Content) == "" {
			return fmt.Errorf("turn %d: empty content", i)
		}
	}
	if strings.ToLower(turns[len(turns)-1].Role) != RoleUser {
		return fmt.Errorf("last turn must come from the user")
	}
	return nil
}

// FormatTranscript 將對話紀錄折疊為單一文字區塊，每則以角色標籤開頭。
// 多行內容的後續行會縮排，避免被誤認為新的發言。
func FormatTranscript(turns []ChatTurn) string {
	var b strings.Builder
	for i, turn := range turns {
		if i > 0 {
			b.WriteByte('\n')
		}
		label := "User"
		if strings.ToLower(turn.Role) == RoleAssistant {
			label = "Assistant"
		}
		lines := strings.Split(strings.TrimSpace(turn.Content), "\n")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(lines[0])
		for _, l := range lines[1:] {
			b.WriteString("\n  ")
			b.WriteString(l)
		}
	}
	return b.String()
}
