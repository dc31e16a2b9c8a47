package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tatce/ObecRAG/internal/config"
	"github.com/tatce/ObecRAG/internal/data/redisStore"
	"github.com/tatce/ObecRAG/pkg/logger_i"
)

// exchange is one question/answer pair of a chat.
type exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type RedisMessageStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisMessageStore returns nil when Redis is unreachable so the caller
// can fall back to the in-memory store.
func GetRedisMessageStore(ctx context.Context) *RedisMessageStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisMessageStore)
	if inner == nil {
		return nil
	}
	return &RedisMessageStore{
		store:  inner,
		logger: logger_i.NewLogger("MessageStore"),
	}
}

func (s *RedisMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", chatId)
	log.Debug("validating chatId")
	isFound, err := s.store.Exists(ctx, chatId)
	if err != nil && !s.store.IsNil(err) {
		log.Error("Failed to check if chatId exists", "err", err)
		return false
	}
	return isFound
}

func (s *RedisMessageStore) InitNewChat(ctx context.Context, id string) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", id)
	log.Debug("Initializing new chat")
	if err := s.store.Del(ctx, id); err != nil && !s.store.IsNil(err) {
		log.Error("Error initializing chat", "err", err)
	}
	// an empty marker entry makes the chat id resolvable before the first
	// exchange lands
	return s.push(ctx, id, exchange{})
}

func (s *RedisMessageStore) AppendExchange(ctx context.Context, chatId string, question string, answer string) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", chatId)
	if !s.ValidateChatId(ctx, chatId) {
		err := fmt.Errorf("invalid chat id %s", chatId)
		log.Error("Failed validation before saving", "err", err)
		return err
	}
	return s.push(ctx, chatId, exchange{Question: question, Answer: answer})
}

func (s *RedisMessageStore) push(ctx context.Context, id string, e exchange) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", id)
	data, err := json.Marshal(e)
	if err != nil {
		log.Error("Error marshalling exchange", "err", err)
		return err
	}
	if err := s.store.ListPush(ctx, id, data); err != nil {
		log.Error("error saving chat", "error:", err)
		return err
	}
	log.Debug("Saved chat successfully")
	return nil
}

// History renders the most recent exchanges, oldest first, in the form the
// completion prompt expects.
func (s *RedisMessageStore) History(ctx context.Context, chatId string) (string, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "chat Id", chatId)
	log.Debug("Getting message history")

	// the tail of a young chat still contains the init marker, so fetch one
	// extra entry and cap after filtering
	entries, err := s.store.ListTail(ctx, chatId, config.HistoryDepth+1)
	if err != nil && !s.store.IsNil(err) {
		log.Error("Error getting history", "error:", err)
		return "", err
	}
	return renderHistory(entries), nil
}

func renderHistory(entries []string) string {
	exchanges := make([]exchange, 0, len(entries))
	for _, entry := range entries {
		var e exchange
		if err := json.Unmarshal([]byte(entry), &e); err != nil {
			continue
		}
		if e.Question == "" && e.Answer == "" {
			continue // init marker
		}
		exchanges = append(exchanges, e)
	}
	if len(exchanges) > config.HistoryDepth {
		exchanges = exchanges[len(exchanges)-config.HistoryDepth:]
	}

	var b strings.Builder
	for _, e := range exchanges {
		fmt.Fprintf(&b, "User: %s\nBot: %s\n", e.Question, e.Answer)
	}
	return b.String()
}

func TestMessageStore(store *redisStore.Store) *RedisMessageStore {
	return &RedisMessageStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
