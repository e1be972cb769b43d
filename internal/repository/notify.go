package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/user/cinelog/internal/utils"
	"gorm.io/gorm"
)

// Publisher 本地消息分发（由 service.Hub 实现）
type Publisher interface {
	Publish(topic string, payload interface{}) error
}

type notifyEnvelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// NotifyRelay 通过 Postgres LISTEN/NOTIFY 在多个实例间转发实时消息
type NotifyRelay struct {
	db      *gorm.DB
	dsn     string
	channel string
}

// NewNotifyRelay 创建转发器
func NewNotifyRelay(db *gorm.DB, dsn string) *NotifyRelay {
	return &NotifyRelay{db: db, dsn: dsn, channel: "cinelog_realtime"}
}

// Publish 发送 NOTIFY，由所有实例（包括自身）的 Run 接收
func (r *NotifyRelay) Publish(topic string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化实时消息失败: %w", err)
	}
	env, err := json.Marshal(notifyEnvelope{Topic: topic, Payload: body})
	if err != nil {
		return fmt.Errorf("序列化实时消息失败: %w", err)
	}
	return r.db.Exec("SELECT pg_notify(?, ?)", r.channel, string(env)).Error
}

// Run 监听通知并转发到本地 Hub，直到 ctx 结束
func (r *NotifyRelay) Run(ctx context.Context, sink Publisher) error {
	logger := utils.NewLogger("Realtime")

	listener := pq.NewListener(r.dsn, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("监听连接异常", "event", ev, "err", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(r.channel); err != nil {
		return fmt.Errorf("LISTEN %s 失败: %w", r.channel, err)
	}
	logger.Info("开始监听实时消息", "channel", r.channel)

	ticker := time.NewTicker(90 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// 重连后会收到 nil
			if n == nil {
				continue
			}
			var env notifyEnvelope
			if err := json.Unmarshal([]byte(n.Extra), &env); err != nil {
				logger.Warn("无法解析实时消息", "err", err)
				continue
			}
			if err := sink.Publish(env.Topic, env.Payload); err != nil {
				logger.Warn("转发实时消息失败", "topic", env.Topic, "err", err)
			}
		case <-ticker.C:
			go listener.Ping()
		}
	}
}
