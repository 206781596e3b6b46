package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"tachora/backend/config"
	"tachora/backend/internal/conversation"
	"tachora/backend/internal/scheduling"
	"tachora/backend/pkg/kvstore"
)

func setupConversationService(t *testing.T) (*Service, *memDB) {
	t.Helper()
	db := newMemDB()
	seedBasicData(db)
	seedEveningTemplate(db)
	kv := kvstore.NewMemoryStore(0)
	t.Cleanup(func() { kv.Close() })

	cfg := &config.Config{Scheduling: config.SchedulingConfig{
		PreviewTTL:        30 * time.Minute,
		AppliedPreviewTTL: time.Hour,
		TurnMemoryTTL:     45 * time.Minute,
		FocusMemoryTTL:    12 * time.Hour,
	}}
	return NewService(cfg, db.toRepository(), kv, zap.NewNop()), db
}

func presentForBob(t *testing.T, svc *Service) *PresentCandidatesResult {
	t.Helper()
	res, err := svc.Conversation.PresentCandidates(context.Background(), &PresentCandidatesRequest{
		UserID: "user-1", StoreID: testStoreID, WeekID: testWeekID,
		EmployeeID: "emp-bob", Day: scheduling.Monday,
	})
	if err != nil {
		t.Fatalf("展示候选失败: %v", err)
	}
	return res
}

func reply(svc *Service, text, locale string) (*ReplyResult, error) {
	return svc.Conversation.Reply(context.Background(), &ReplyRequest{
		UserID: "user-1", StoreID: testStoreID, WeekID: testWeekID, Text: text, Locale: locale,
	})
}

func TestConversationService_PresentCandidates(t *testing.T) {
	svc, _ := setupConversationService(t)
	res := presentForBob(t, svc)

	if len(res.Options) != 2 {
		t.Fatalf("应有 2 个选项，实际 %d", len(res.Options))
	}
	if res.Options[0].ID != "opt_1" || !res.Options[0].Fits || res.Options[1].Fits {
		t.Errorf("选项不符: %+v", res.Options)
	}

	focus, err := svc.Conversation.GetFocus(context.Background(), "user-1", testStoreID, "")
	if err != nil {
		t.Fatalf("读取焦点失败: %v", err)
	}
	if focus.EmployeeID != "emp-bob" || focus.Day != scheduling.Monday {
		t.Errorf("焦点记忆不符: %+v", focus)
	}
}

func TestConversationService_PresentCandidates_UsesFocus(t *testing.T) {
	svc, _ := setupConversationService(t)
	presentForBob(t, svc)

	res, err := svc.Conversation.PresentCandidates(context.Background(), &PresentCandidatesRequest{
		UserID: "user-1", StoreID: testStoreID, WeekID: testWeekID,
	})
	if err != nil {
		t.Fatalf("沿用焦点展示候选失败: %v", err)
	}
	if len(res.Options) != 2 || res.Options[0].EmployeeID != "emp-bob" {
		t.Errorf("应沿用焦点中的员工与日期: %+v", res.Options)
	}
}

func TestConversationService_PresentCandidates_NoEmployee(t *testing.T) {
	svc, _ := setupConversationService(t)
	_, err := svc.Conversation.PresentCandidates(context.Background(), &PresentCandidatesRequest{
		UserID: "user-1", StoreID: testStoreID, WeekID: testWeekID, Day: scheduling.Monday,
	})
	if !errors.Is(err, ErrConversationNoEmployee) {
		t.Fatalf("期望 ErrConversationNoEmployee，实际 %v", err)
	}
}

func TestConversationService_Reply_AffirmativeCreatesPreview(t *testing.T) {
	for _, tc := range []struct {
		text   string
		locale string
	}{
		{"yes", "en"},
		{"oui", "en"},
		{"Oui", "fr-FR"},
	} {
		t.Run(tc.text+"/"+tc.locale, func(t *testing.T) {
			svc, db := setupConversationService(t)
			presentForBob(t, svc)

			res, err := reply(svc, tc.text, tc.locale)
			if err != nil {
				t.Fatalf("回复失败: %v", err)
			}
			in := res.Interpretation
			if in.Intent != conversation.IntentSelect || in.OptionID != "opt_1" || in.Confidence != 0.95 {
				t.Errorf("解析结果不符: %+v", in)
			}
			if res.Preview == nil || res.Preview.Preview.Source != scheduling.SourceAI {
				t.Fatalf("选中后应创建 ai 来源的预览: %+v", res.Preview)
			}
			if res.Applied != nil || len(db.assignments) != 0 {
				t.Error("肯定回复不应自动应用")
			}

			if _, err := reply(svc, "1", "en"); !errors.Is(err, ErrConversationNoMemory) {
				t.Errorf("选中后轮次记忆应被清除，实际 %v", err)
			}
		})
	}
}

func TestConversationService_Reply_AssignPronounAutoApplies(t *testing.T) {
	svc, db := setupConversationService(t)
	presentForBob(t, svc)

	res, err := reply(svc, "assign him", "en")
	if err != nil {
		t.Fatalf("回复失败: %v", err)
	}
	if !res.Interpretation.AutoApply || res.Applied == nil {
		t.Fatalf("指派语句应自动应用: %+v", res)
	}
	if len(db.assignments) != 1 {
		t.Fatalf("应写入 1 个排班段，实际 %d", len(db.assignments))
	}
	for _, a := range db.assignments {
		if a.EmployeeID == nil || *a.EmployeeID != "emp-bob" {
			t.Errorf("排班段应排给 Bob: %+v", a)
		}
	}
}

func TestConversationService_Reply_RejectClearsMemory(t *testing.T) {
	svc, _ := setupConversationService(t)
	presentForBob(t, svc)

	res, err := reply(svc, "no", "en")
	if err != nil {
		t.Fatalf("回复失败: %v", err)
	}
	if res.Interpretation.Intent != conversation.IntentReject || res.Preview != nil {
		t.Errorf("否定回复应为 reject 且不建预览: %+v", res)
	}
	if _, err := reply(svc, "1", "en"); !errors.Is(err, ErrConversationNoMemory) {
		t.Errorf("拒绝后轮次记忆应被清除，实际 %v", err)
	}
}

func TestConversationService_Reply_UnknownKeepsMemory(t *testing.T) {
	svc, _ := setupConversationService(t)
	presentForBob(t, svc)

	res, err := reply(svc, "hmm", "en")
	if err != nil {
		t.Fatalf("回复失败: %v", err)
	}
	if res.Interpretation.Intent != conversation.IntentUnknown {
		t.Errorf("无法识别的回复应为 unknown: %+v", res.Interpretation)
	}

	res, err = reply(svc, "1", "en")
	if err != nil {
		t.Fatalf("记忆应仍然有效: %v", err)
	}
	if res.Interpretation.OptionID != "opt_1" || res.Preview == nil {
		t.Errorf("数字 1 应选中 opt_1 并创建预览: %+v", res)
	}
}

func TestConversationService_Reply_UnfitOptionRejectedByConstraints(t *testing.T) {
	svc, _ := setupConversationService(t)
	presentForBob(t, svc)

	// opt_2 晚班结束晚于 Bob 可用时间，创建预览时被约束阻断
	_, err := reply(svc, "2", "en")
	if !errors.Is(err, ErrConstraintViolation) {
		t.Fatalf("期望 ErrConstraintViolation，实际 %v", err)
	}
}

func TestConversationService_Reply_StaleCandidatesVersionMismatch(t *testing.T) {
	svc, db := setupConversationService(t)
	presented := presentForBob(t, svc)

	// 展示候选后排班被他人改动
	seedOpenAssignment(db, "as-thu")

	_, err := reply(svc, "1", "en")
	if !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("期望 ErrVersionMismatch，实际 %v", err)
	}
	if len(db.assignments) != 1 {
		t.Errorf("版本冲突时不应写入排班段，实际 %d", len(db.assignments))
	}

	// 记忆保留，可重新展示后再选
	res, err := svc.Conversation.PresentCandidates(context.Background(), &PresentCandidatesRequest{
		UserID: "user-1", StoreID: testStoreID, WeekID: testWeekID,
	})
	if err != nil {
		t.Fatalf("重新展示候选失败: %v", err)
	}
	if res.Version == presented.Version {
		t.Fatal("排班改动后版本号应变化")
	}
	out, err := reply(svc, "1", "en")
	if err != nil {
		t.Fatalf("按新版本选择失败: %v", err)
	}
	if out.Preview == nil || out.Preview.Preview.SnapshotVersion != res.Version {
		t.Errorf("预览应基于重新展示时的版本: %+v", out.Preview)
	}
}

func TestConversationService_Reply_NoMemory(t *testing.T) {
	svc, _ := setupConversationService(t)
	if _, err := reply(svc, "yes", "en"); !errors.Is(err, ErrConversationNoMemory) {
		t.Fatalf("期望 ErrConversationNoMemory，实际 %v", err)
	}
}

func TestConversationService_Reset(t *testing.T) {
	svc, _ := setupConversationService(t)
	presentForBob(t, svc)

	if err := svc.Conversation.Reset(context.Background(), "user-1", testStoreID, testWeekID, ""); err != nil {
		t.Fatalf("重置失败: %v", err)
	}
	if _, err := reply(svc, "1", "en"); !errors.Is(err, ErrConversationNoMemory) {
		t.Errorf("重置后轮次记忆应不存在，实际 %v", err)
	}
	if _, err := svc.Conversation.GetFocus(context.Background(), "user-1", testStoreID, ""); !errors.Is(err, ErrConversationNoEmployee) {
		t.Errorf("重置后焦点应不存在，实际 %v", err)
	}
}
