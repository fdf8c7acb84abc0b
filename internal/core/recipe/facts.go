package recipe

import (
	"context"
	"fmt"

	"recipe-agents/internal/core/pipeline"
	"recipe-agents/internal/core/table"
	"recipe-agents/internal/infrastructure/tablestore"
	"recipe-agents/internal/pkg/common"

	"go.uber.org/zap"
)

// 來源資料表名稱
const (
	TableIngredients = "ingredients"
	TableCalendar    = "calendar"
	TableRules       = "rules"
)

// NoData 資料表無法使用時綁定的替代文字
const NoData = "(no data available)"

// factsLoader 每次執行都重新讀取並解析來源資料表
type factsLoader struct {
	store tablestore.Store
}

// load 將資料表正規化後寫入 rc.Vars[name]。
// 讀取失敗或解析不出任何資料列時以 NoData 代替並加上 PARSE_DEFECT 警告。
func (l factsLoader) load(ctx context.Context, rc *pipeline.RunContext, names ...string) {
	for _, name := range names {
		rc.Vars[name] = l.one(ctx, rc, name)
	}
}

func (l factsLoader) one(ctx context.Context, rc *pipeline.RunContext, name string) string {
	if l.store == nil {
		rc.Warn(pipeline.KindParseDefect, "", fmt.Sprintf("%s: no table store configured", name))
		return NoData
	}

	raw, err := l.store.Load(ctx, name)
	if err != nil {
		common.LogWarn("Source table unavailable",
			zap.String("run_id", rc.RunID),
			zap.String("table", name),
			zap.Error(err),
		)
		rc.Warn(pipeline.KindParseDefect, "", fmt.Sprintf("%s: %v", name, err))
		return NoData
	}

	t := table.Parse(raw)
	if err := t.Defect(); err != nil {
		common.LogWarn("Source table has no usable rows",
			zap.String("run_id", rc.RunID),
			zap.String("table", name),
			zap.Int("skipped", len(t.Diagnostics)),
		)
		rc.Warn(pipeline.KindParseDefect, "", fmt.Sprintf("%s: %v", name, err))
		return NoData
	}

	if len(t.Diagnostics) > 0 {
		common.LogDebug("Source table rows skipped",
			zap.String("run_id", rc.RunID),
			zap.String("table", name),
			zap.Int("rows", len(t.Rows)),
			zap.Int("skipped", len(t.Diagnostics)),
		)
	}
	return table.Format(t)
}
