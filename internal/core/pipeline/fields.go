package pipeline

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"recipe-agents/internal/core/prompt"
)

// seed 檢查所有欄位並寫入 RunContext，返回全部問題而不是第一個
func (p *Pipeline) seed(rc *RunContext, payload Payload) []string {
	var problems []string
	for _, f := range p.Fields {
		raw, present := payload[f.Name]
		if !present || raw == nil {
			if f.Kind == String && f.Optional {
				rc.Vars[f.Name] = ""
				continue
			}
			problems = append(problems, fmt.Sprintf("%s: required", f.Name))
			continue
		}

		switch f.Kind {
		case String:
			s, ok := raw.(string)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s: must be a string", f.Name))
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" && !f.Optional {
				problems = append(problems, fmt.Sprintf("%s: must not be empty", f.Name))
				continue
			}
			rc.Vars[f.Name] = s

		case Int:
			n, ok := toInt(raw)
			if !ok || n < 0 {
				problems = append(problems, fmt.Sprintf("%s: must be an integer >= 0", f.Name))
				continue
			}
			rc.Ints[f.Name] = n
			rc.Vars[f.Name] = strconv.Itoa(n)

		case Transcript:
			turns, ok := toTranscript(raw)
			if !ok {
				problems = append(problems, fmt.Sprintf("%s: must be a list of {role, content}", f.Name))
				continue
			}
			if err := prompt.ValidateTranscript(turns); err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", f.Name, err))
				continue
			}
			rc.Transcript = turns
		}
	}

	if len(problems) == 0 && p.Validate != nil {
		problems = append(problems, p.Validate(rc)...)
	}
	return problems
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}

func toTranscript(v any) ([]prompt.ChatTurn, bool) {
	switch t := v.(type) {
	case []prompt.ChatTurn:
		return t, true
	case []any:
		turns := make([]prompt.ChatTurn, 0, len(t))
		for _, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			role, _ := m["role"].(string)
			content, _ := m["content"].(string)
			turns = append(turns, prompt.ChatTurn{Role: role, Content: content})
		}
		return turns, true
	}
	return nil, false
}
