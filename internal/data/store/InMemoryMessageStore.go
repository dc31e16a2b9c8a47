package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/tatce/ObecRAG/internal/config"
)

type InMemoryMessageStore struct {
	chatLock *sync.RWMutex
	chatMap  map[string][]exchange
}

func InitMessageStore() *InMemoryMessageStore {
	return &InMemoryMessageStore{
		chatLock: new(sync.RWMutex),
		chatMap:  make(map[string][]exchange),
	}
}

func (store *InMemoryMessageStore) ValidateChatId(ctx context.Context, chatId string) bool {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()
	_, ok := store.chatMap[chatId]
	return ok
}

func (store *InMemoryMessageStore) InitNewChat(ctx context.Context, id string) error {
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[id] = make([]exchange, 0)
	return nil
}

func (store *InMemoryMessageStore) AppendExchange(ctx context.Context, chatId string, question string, answer string) error {
	if !store.ValidateChatId(ctx, chatId) {
		return fmt.Errorf("invalid chat id %s", chatId)
	}
	store.chatLock.Lock()
	defer store.chatLock.Unlock()
	store.chatMap[chatId] = append(store.chatMap[chatId], exchange{Question: question, Answer: answer})
	return nil
}

func (store *InMemoryMessageStore) History(ctx context.Context, chatId string) (string, error) {
	store.chatLock.RLock()
	defer store.chatLock.RUnlock()

	exchanges := store.chatMap[chatId]
	if len(exchanges) > config.HistoryDepth {
		exchanges = exchanges[len(exchanges)-config.HistoryDepth:]
	}

	var b strings.Builder
	for _, e := range exchanges {
		fmt.Fprintf(&b, "User: %s\nBot: %s\n", e.Question, e.Answer)
	}
	return b.String(), nil
}
