package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tachora/backend/internal/conversation"
	"tachora/backend/internal/scheduling"
)

// PresentCandidatesRequest 在对话中列出候选班次；EmployeeID / Day 为空时取焦点记忆
type PresentCandidatesRequest struct {
	UserID     string
	StoreID    string
	WeekID     string
	ThreadID   string
	EmployeeID string
	Day        scheduling.Weekday
	Role       string
}

// PresentCandidatesResult 已写入轮次记忆的编号候选
type PresentCandidatesResult struct {
	Version string                     `json:"version"`
	Message string                     `json:"message"`
	Options []conversation.ShiftOption `json:"options"`
}

// ReplyRequest 用户对候选列表的回复
type ReplyRequest struct {
	UserID   string
	StoreID  string
	WeekID   string
	ThreadID string
	Text     string
	Locale   string
}

// ReplyResult 回复解析结果；选中时附带新建的预览，autoApply 时附带应用结果
type ReplyResult struct {
	Interpretation conversation.Interpretation `json:"interpretation"`
	Option         *conversation.ShiftOption   `json:"option,omitempty"`
	Preview        *PreviewResult              `json:"preview,omitempty"`
	Applied        *ApplyResult                `json:"applied,omitempty"`
}

// ConversationService 组合候选生成、轮次记忆与回复解析
//
// 状态流转：无记忆 → 已展示候选（记忆中保存选项与锁定范围）
// → 选中（创建预览并清除记忆）/ 拒绝（清除记忆）/ 45 分钟无写入自动过期。
type ConversationService interface {
	PresentCandidates(ctx context.Context, req *PresentCandidatesRequest) (*PresentCandidatesResult, error)
	Reply(ctx context.Context, req *ReplyRequest) (*ReplyResult, error)
	GetFocus(ctx context.Context, userID, storeID, threadID string) (*conversation.FocusMemory, error)
	Reset(ctx context.Context, userID, storeID, weekID, threadID string) error
}

type conversationService struct {
	candidates  CandidateService
	previews    PreviewService
	loader      SnapshotLoader
	memory      *conversation.MemoryStore
	interpreter *conversation.Interpreter
	logger      *zap.Logger
	now         func() time.Time
}

// NewConversationService 创建 ConversationService 实例
func NewConversationService(
	candidates CandidateService,
	previews PreviewService,
	loader SnapshotLoader,
	memory *conversation.MemoryStore,
	interpreter *conversation.Interpreter,
	logger *zap.Logger,
) ConversationService {
	return &conversationService{
		candidates:  candidates,
		previews:    previews,
		loader:      loader,
		memory:      memory,
		interpreter: interpreter,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *conversationService) PresentCandidates(ctx context.Context, req *PresentCandidatesRequest) (*PresentCandidatesResult, error) {
	focusKey := conversation.FocusKey{UserID: req.UserID, StoreID: req.StoreID, ThreadID: req.ThreadID}
	focus, _, err := s.memory.LoadFocus(ctx, focusKey)
	if err != nil {
		s.logger.Error("读取焦点记忆失败", zap.Error(err))
		return nil, err
	}
	employeeID, day, role := req.EmployeeID, req.Day, req.Role
	if focus != nil {
		if employeeID == "" {
			employeeID = focus.EmployeeID
		}
		if day == "" {
			day = focus.Day
		}
		if role == "" {
			role = focus.Role
		}
	}
	if employeeID == "" {
		return nil, ErrConversationNoEmployee
	}

	res, err := s.candidates.Generate(ctx, CandidateQuery{
		StoreID:    req.StoreID,
		WeekID:     req.WeekID,
		EmployeeID: employeeID,
		Day:        day,
		Role:       role,
	})
	if err != nil {
		return nil, err
	}

	options := conversation.CandidatesToOptions(res.Candidates, res.EmployeeID, res.EmployeeName)
	mem := &conversation.TurnMemory{
		UserID:   req.UserID,
		StoreID:  req.StoreID,
		WeekID:   req.WeekID,
		ThreadID: req.ThreadID,
		Scope: conversation.TurnScope{
			EmployeeID:   res.EmployeeID,
			EmployeeName: res.EmployeeName,
			Day:          day,
			Role:         role,
		},
		Options:      options,
		Version:      res.Version,
		LastQuestion: res.Message,
	}
	if err := s.memory.SaveTurnMemory(ctx, mem); err != nil {
		s.logger.Error("保存轮次记忆失败", zap.Error(err))
		return nil, err
	}
	if err := s.memory.SaveFocus(ctx, &conversation.FocusMemory{
		UserID:       req.UserID,
		StoreID:      req.StoreID,
		ThreadID:     req.ThreadID,
		WeekID:       req.WeekID,
		EmployeeID:   res.EmployeeID,
		EmployeeName: res.EmployeeName,
		Day:          day,
		Role:         role,
	}); err != nil {
		s.logger.Error("保存焦点记忆失败", zap.Error(err))
		return nil, err
	}

	return &PresentCandidatesResult{Version: res.Version, Message: res.Message, Options: options}, nil
}

func (s *conversationService) Reply(ctx context.Context, req *ReplyRequest) (*ReplyResult, error) {
	key := conversation.TurnKey{UserID: req.UserID, StoreID: req.StoreID, WeekID: req.WeekID, ThreadID: req.ThreadID}
	mem, ok, err := s.memory.LoadTurnMemory(ctx, key)
	if err != nil {
		s.logger.Error("读取轮次记忆失败", zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, ErrConversationNoMemory
	}

	interp := s.interpreter.Interpret(req.Text, mem, req.Locale)
	out := &ReplyResult{Interpretation: interp}
	s.logger.Debug("解析对话回复",
		zap.String("intent", string(interp.Intent)),
		zap.String("rule", interp.Rule),
		zap.Float64("confidence", interp.Confidence),
	)

	switch interp.Intent {
	case conversation.IntentReject:
		if _, err := s.memory.ClearTurnMemory(ctx, key); err != nil {
			s.logger.Error("清除轮次记忆失败", zap.Error(err))
			return nil, err
		}
		return out, nil
	case conversation.IntentSelect:
	default:
		return out, nil
	}

	opt, _ := mem.Option(interp.OptionID)
	out.Option = opt
	op, ok := conversation.ResolveOperation(mem, interp, scheduling.OperationMeta{
		At:     s.now().UTC(),
		Source: scheduling.SourceAI,
	})
	if !ok {
		return nil, ErrConversationNoEmployee
	}

	// 以展示候选时的版本建预览，期间排班被改动则返回版本冲突
	version := mem.Version
	if version == "" {
		snap, err := s.loader.Load(ctx, req.StoreID, req.WeekID)
		if err != nil {
			return nil, err
		}
		version = snap.Version
	}
	preview, err := s.previews.Create(ctx, &CreatePreviewRequest{
		StoreID:         req.StoreID,
		WeekID:          req.WeekID,
		Operations:      []scheduling.Operation{op},
		SnapshotVersion: version,
		ActorID:         req.UserID,
		Source:          scheduling.SourceAI,
	})
	if err != nil {
		return nil, err
	}
	out.Preview = preview

	if interp.AutoApply {
		applied, err := s.previews.Apply(ctx, preview.Preview.ID, req.UserID, version)
		if err != nil {
			return nil, err
		}
		out.Applied = applied
	}

	if _, err := s.memory.ClearTurnMemory(ctx, key); err != nil {
		// 预览已建立，记忆清理失败只会让旧候选多存活到 TTL
		s.logger.Warn("清除轮次记忆失败", zap.Error(err))
	}
	return out, nil
}

func (s *conversationService) GetFocus(ctx context.Context, userID, storeID, threadID string) (*conversation.FocusMemory, error) {
	focus, ok, err := s.memory.LoadFocus(ctx, conversation.FocusKey{UserID: userID, StoreID: storeID, ThreadID: threadID})
	if err != nil {
		s.logger.Error("读取焦点记忆失败", zap.Error(err))
		return nil, err
	}
	if !ok {
		return nil, ErrConversationNoEmployee
	}
	return focus, nil
}

func (s *conversationService) Reset(ctx context.Context, userID, storeID, weekID, threadID string) error {
	if _, err := s.memory.ClearTurnMemory(ctx, conversation.TurnKey{UserID: userID, StoreID: storeID, WeekID: weekID, ThreadID: threadID}); err != nil {
		return err
	}
	_, err := s.memory.ClearFocus(ctx, conversation.FocusKey{UserID: userID, StoreID: storeID, ThreadID: threadID})
	return err
}
