package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

const (
	RealtimeCreate = "create"
	RealtimeUpdate = "update"
	RealtimeDelete = "delete"

	// AttendanceWildcardTopic 订阅全部个人评分变化
	AttendanceWildcardTopic = "watch_history_user/*"
)

// AttendanceTopic 单条个人评分的主题
func AttendanceTopic(id int) string {
	return "watch_history_user/" + strconv.Itoa(id)
}

// RealtimeEvent 推送给订阅者的消息体
type RealtimeEvent struct {
	Action string      `json:"action"`
	Record interface{} `json:"record"`
}

// HubMessage 一条已序列化的消息
type HubMessage struct {
	Topic string
	Data  json.RawMessage
}

// Subscription 订阅句柄，使用完必须 Close
type Subscription struct {
	C      <-chan HubMessage
	ch     chan HubMessage
	topics map[string]struct{}
	hub    *Hub
	once   sync.Once
}

// Close 取消订阅并关闭通道
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub 进程内的主题分发。主题按字面匹配，通配主题只接收发布到通配主题的消息。
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	buffer int
}

func NewHub() *Hub {
	return &Hub{
		subs:   make(map[*Subscription]struct{}),
		buffer: 16,
	}
}

// Subscribe 订阅一个或多个主题
func (h *Hub) Subscribe(topics ...string) *Subscription {
	ch := make(chan HubMessage, h.buffer)
	s := &Subscription{
		C:      ch,
		ch:     ch,
		topics: make(map[string]struct{}, len(topics)),
		hub:    h,
	}
	for _, t := range topics {
		s.topics[t] = struct{}{}
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Publish 序列化后发送给订阅了 topic 的客户端；通道已满的订阅者会被跳过
func (h *Hub) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化实时消息失败: %w", err)
	}
	msg := HubMessage{Topic: topic, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if _, ok := s.topics[topic]; !ok {
			continue
		}
		select {
		case s.ch <- msg:
		default:
		}
	}
	return nil
}

// Subscribers 当前订阅数
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// RealtimeGate 只放行调用者能查看的清单上的评分消息
type RealtimeGate struct {
	history  HistoryStore
	resolver *AccessResolver
}

func NewRealtimeGate(history HistoryStore, resolver *AccessResolver) *RealtimeGate {
	return &RealtimeGate{history: history, resolver: resolver}
}

// Allow 解析消息里的 watch_history，按所在清单的访问权限判断；无法判断时不放行
func (g *RealtimeGate) Allow(ctx context.Context, msg HubMessage, caller Caller) bool {
	var ev struct {
		Record struct {
			WatchedHistoryID int `json:"watch_history"`
		} `json:"record"`
	}
	if err := json.Unmarshal(msg.Data, &ev); err != nil || ev.Record.WatchedHistoryID <= 0 {
		return false
	}
	item, err := g.history.FindByID(ctx, ev.Record.WatchedHistoryID)
	if err != nil || item == nil {
		return false
	}
	access, err := g.resolver.Resolve(ctx, strconv.Itoa(item.ListID), caller)
	return err == nil && access.HasAccess
}
