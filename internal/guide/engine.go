package guide

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hession/daymate/internal/llm"
	"github.com/hession/daymate/internal/logger"
	"github.com/hession/daymate/internal/memory"
)

// Config 引擎配置
type Config struct {
	Language      string // 默认语言 en/zh
	CharacterName string // AI 角色名
	Tone          string // 日记语气
	HistoryWindow int    // 引导提示词中包含的最近消息条数
}

// Engine 引导式回顾引擎门面
// 串联：危机检测 → 状态机 → 记忆抽取 → 矛盾消解 → 混合检索 → 回复生成。
// 同一用户的消息串行处理（按用户加锁），不同用户互不阻塞
type Engine struct {
	sessions  Store
	extractor *memory.Extractor
	resolver  *memory.Resolver
	retriever *memory.Retriever
	composer  *Composer
	chat      ChatClient
	cfg       Config

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewEngine 创建引擎
// chat 可为 nil，此时引导回复全部使用内置话术
func NewEngine(sessions Store, memStore memory.Store, embedder memory.Embedder,
	chat ChatClient, overwriteThreshold float64, retrievalLimit int, cfg Config) *Engine {

	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.CharacterName == "" {
		cfg.CharacterName = "AI Assistant"
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 6
	}

	return &Engine{
		sessions:  sessions,
		extractor: memory.NewExtractor(),
		resolver:  memory.NewResolver(memStore, embedder, overwriteThreshold),
		retriever: memory.NewRetriever(memStore, embedder, retrievalLimit),
		composer:  NewComposer(chat, cfg.CharacterName, cfg.Tone),
		chat:      chat,
		cfg:       cfg,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// lockUser 获取用户级互斥锁，保证同一用户的回合串行
func (e *Engine) lockUser(userID string) func() {
	e.mu.Lock()
	lock, ok := e.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.userLocks[userID] = lock
	}
	e.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// today 当前自然日
func today() string {
	return time.Now().Format("2006-01-02")
}

// StartSession 开始当日会话
// 当日已有未完成会话时直接返回它；同时清理之前日期遗留的未完成会话
func (e *Engine) StartSession(ctx context.Context, userID, language string) (*Session, error) {
	if language == "" {
		language = e.cfg.Language
	}

	unlock := e.lockUser(userID)
	defer unlock()

	date := today()

	if n, err := e.sessions.DiscardStale(userID, date); err != nil {
		logger.Warn("清理过期会话失败: %v", err)
	} else if n > 0 {
		logger.Info("清理用户 %s 的 %d 个过期会话", userID, n)
	}

	existing, err := e.sessions.GetActiveSession(userID, date)
	if err == nil {
		return existing, nil
	}
	if err != ErrSessionNotFound {
		return nil, err
	}

	return e.createSession(userID, date, language)
}

// StartFresh 废弃当前未完成会话并立即开始新会话
// 只影响会话行，不触碰记忆存储
func (e *Engine) StartFresh(ctx context.Context, userID, language string) (*Session, error) {
	if language == "" {
		language = e.cfg.Language
	}

	unlock := e.lockUser(userID)
	defer unlock()

	if _, err := e.sessions.DiscardIncomplete(userID); err != nil {
		return nil, err
	}

	return e.createSession(userID, today(), language)
}

func (e *Engine) createSession(userID, date, language string) (*Session, error) {
	session := &Session{
		UserID:   userID,
		Date:     date,
		Language: language,
		Phase:    PhaseGuide,
		Intent:   IntentAskMood,
	}
	if err := e.sessions.CreateSession(session); err != nil {
		return nil, err
	}

	greeting := Greeting(language, e.cfg.CharacterName)
	if err := e.sessions.AppendTurn(&Turn{
		SessionID: session.ID,
		Role:      "assistant",
		Content:   greeting,
	}); err != nil {
		logger.Warn("记录开场白失败: %v", err)
	}

	logger.Info("用户 %s 开始新会话 %s", userID, session.ID)
	return session, nil
}

// GetActiveSession 获取用户当日的活跃会话，没有时返回 (nil, nil)
// 无副作用，重复调用返回相同状态
func (e *Engine) GetActiveSession(ctx context.Context, userID string) (*Session, error) {
	session, err := e.sessions.GetActiveSession(userID, today())
	if err == ErrSessionNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// SendMessage 处理用户的一条消息，驱动状态机前进一步
// 处理顺序：危机检测最优先，其次生成触发词，最后正常话题推进。
// 生成日记时 LLM 失败会返回含 llm.ErrUnavailable 的错误，
// 会话停留在生成阶段，用户重新发送即重试
func (e *Engine) SendMessage(ctx context.Context, sessionID, text, language string) (*Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	session, err := e.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}

	unlock := e.lockUser(session.UserID)
	defer unlock()

	// 加锁后重读，避免与同用户的并发回合丢失更新
	session, err = e.sessions.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsComplete {
		return nil, ErrSessionComplete
	}

	if language == "" {
		language = session.Language
	}

	before := *session

	if err := e.sessions.AppendTurn(&Turn{
		SessionID: session.ID,
		Role:      "user",
		Content:   text,
	}); err != nil {
		return nil, err
	}

	// 记忆抽取与合并在任何分支前完成，危机消息同样保留记忆
	candidates := e.extractor.Extract(text, language)
	resolutions := e.resolver.Resolve(ctx, session.UserID, candidates)
	if len(resolutions) > 0 {
		logger.Debug("会话 %s 本轮合并 %d 条记忆", session.ID, len(resolutions))
	}

	// 危机分支：给出支持性回复但不改变话题，之后的消息照常处理
	if isCrisis, phrase := DetectCrisis(text); isCrisis {
		logger.Warn("会话 %s 检测到危机语言: %s", session.ID, phrase)
		session.IsCrisis = true

		response := crisisResponse(language)
		if err := e.finishTurn(session, response); err != nil {
			e.rollback(&before)
			return nil, err
		}
		return e.reply(session, response, nil), nil
	}

	// 明确要求生成日记时，任何话题下都直接短路到生成阶段
	if wantsGenerate(text) {
		session.Phase = PhaseCompose
		session.Intent = IntentCompose
	}

	if session.Intent == IntentCompose {
		return e.compose(ctx, session, &before, language)
	}

	// 正常话题推进：回答充分则记录槽位并前进，否则停留并追问
	advanced := false
	if session.Intent.IsAsk() && isSufficient(session.Intent, text) {
		recordAnswer(&session.Answers, session.Intent, text)
		session.Intent = session.Intent.Next()
		advanced = true
	}

	if session.Intent == IntentCompose {
		session.Phase = PhaseCompose
		return e.compose(ctx, session, &before, language)
	}

	var canned string
	if advanced {
		canned = transitionResponse(session.Intent, language)
	} else {
		canned = encouragementResponse(session.Intent, language)
	}

	response := e.phraseGuideResponse(ctx, session, language, text, canned)
	if err := e.finishTurn(session, response); err != nil {
		e.rollback(&before)
		return nil, err
	}

	return e.reply(session, response, nil), nil
}

// LatestDiary 获取会话的最新日记版本
func (e *Engine) LatestDiary(ctx context.Context, sessionID string) (*DiaryEntry, error) {
	return e.sessions.GetLatestDiary(sessionID)
}

// EditDiary 用户编辑日记，产生新的不可变版本
func (e *Engine) EditDiary(ctx context.Context, sessionID, text string) (*DiaryEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	latest, err := e.sessions.GetLatestDiary(sessionID)
	if err != nil {
		return nil, err
	}

	entry := &DiaryEntry{
		SessionID: latest.SessionID,
		UserID:    latest.UserID,
		Content:   text,
		Version:   latest.Version + 1,
	}
	if err := e.sessions.SaveDiary(entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// compose 生成日记并完成会话
func (e *Engine) compose(ctx context.Context, session *Session, before *Session, language string) (*Reply, error) {
	query := answersQuery(session.Answers)
	results, err := e.retriever.Search(ctx, session.UserID, query, language)
	if err != nil {
		logger.Warn("检索记忆失败，继续无上下文生成: %v", err)
		results = nil
	}
	memoryContext := FormatMemoryContext(results, language)

	draft, err := e.composer.Compose(ctx, session.Answers, memoryContext, language)
	if err != nil {
		// 会话停留在生成阶段，保留已设置的 phase/intent 供重试
		if updateErr := e.sessions.UpdateSession(session); updateErr != nil {
			logger.Error("保存生成阶段状态失败: %v", updateErr)
		}
		return nil, err
	}

	diary := &DiaryEntry{
		SessionID: session.ID,
		UserID:    session.UserID,
		Content:   draft,
		Version:   1,
	}
	if err := e.sessions.SaveDiary(diary); err != nil {
		e.rollback(before)
		return nil, err
	}

	session.Phase = PhaseComplete
	session.Intent = IntentComplete
	session.IsComplete = true

	response := transitionResponse(IntentCompose, language) + "\n\n" + draft
	if err := e.finishTurn(session, response); err != nil {
		e.rollback(before)
		return nil, err
	}

	// 完成后的记忆补刀：日记正文本身也过一遍抽取
	diaryCandidates := e.extractor.Extract(draft, language)
	diaryResolutions := e.resolver.Resolve(ctx, session.UserID, diaryCandidates)

	if err := e.sessions.SaveSnapshot(&Snapshot{
		SessionID:   session.ID,
		UserID:      session.UserID,
		Extracted:   len(diaryResolutions),
		ContextUsed: memoryContext,
	}); err != nil {
		logger.Warn("保存记忆快照失败: %v", err)
	}

	logger.Info("会话 %s 完成，日记 %s 已生成", session.ID, diary.ID)
	return e.reply(session, response, diary), nil
}

// phraseGuideResponse 尝试用 LLM 改写引导回复，失败时退回内置话术
func (e *Engine) phraseGuideResponse(ctx context.Context, session *Session, language, userText, canned string) string {
	if e.chat == nil {
		return canned
	}

	results, err := e.retriever.Search(ctx, session.UserID, userText, language)
	if err != nil {
		results = nil
	}
	memoryContext := FormatMemoryContext(results, language)

	messages := []llm.Message{
		{Role: "system", Content: guideSystemPrompt(session.Intent, language, e.cfg.CharacterName, memoryContext)},
	}

	turns, err := e.sessions.ListTurns(session.ID, e.cfg.HistoryWindow)
	if err == nil {
		for _, turn := range turns {
			messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
		}
	}

	response, err := e.chat.Chat(ctx, messages)
	if err != nil || strings.TrimSpace(response) == "" {
		logger.Debug("引导回复生成失败，使用内置话术: %v", err)
		return canned
	}
	return strings.TrimSpace(response)
}

// finishTurn 记录助手回复并持久化会话状态
func (e *Engine) finishTurn(session *Session, response string) error {
	if err := e.sessions.AppendTurn(&Turn{
		SessionID: session.ID,
		Role:      "assistant",
		Content:   response,
	}); err != nil {
		return err
	}
	return e.sessions.UpdateSession(session)
}

// rollback 把会话行恢复到本回合之前的状态
func (e *Engine) rollback(before *Session) {
	if err := e.sessions.UpdateSession(before); err != nil {
		logger.Error("回滚会话 %s 失败: %v", before.ID, err)
	}
}

func (e *Engine) reply(session *Session, response string, diary *DiaryEntry) *Reply {
	return &Reply{
		Response:   response,
		Phase:      session.Phase,
		Intent:     session.Intent,
		Answers:    session.Answers,
		IsComplete: session.IsComplete,
		IsCrisis:   session.IsCrisis,
		Diary:      diary,
	}
}

// recordAnswer 把回答写入话题槽位，同轮多次补充用分号连接
func recordAnswer(answers *StructuredAnswers, intent Intent, text string) {
	slot := answers.slotFor(intent)
	if slot == nil {
		return
	}
	if *slot == "" {
		*slot = text
		return
	}
	*slot = *slot + "; " + text
}

// answersQuery 把已填槽位拼成检索查询
func answersQuery(answers StructuredAnswers) string {
	parts := []string{answers.Mood, answers.Activities, answers.ChallengesWins,
		answers.Gratitude, answers.Hope, answers.ExtraNotes}
	var filled []string
	for _, p := range parts {
		if p != "" {
			filled = append(filled, p)
		}
	}
	return strings.Join(filled, " ")
}
