package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/RobotsMakeThings/clawcasino/internal/bus"
)

const (
	streamBuffer  = 256
	writeDeadline = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// control is the client frame for changing subscriptions after connect.
// Only public topics can be added this way.
type control struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
}

// handleStream upgrades to WebSocket and forwards bus events as JSON.
// Query parameters pick the public topics: ?tables=main,vip&duels=1.
// When identity headers are present the agent's private channel rides
// along, which is the only way to receive hole cards.
func (s *Server) handleStream(c *gin.Context) {
	topics := streamTopics(c)

	agentID := c.GetHeader(headerAgent)
	if agentID != "" {
		var ok bool
		if agentID, ok = s.resolveAgent(c); !ok {
			return
		}
		topics = append(topics, bus.AgentTopic(agentID))
	}
	if len(topics) == 0 {
		s.invalid(c, "no topics selected")
		return
	}

	sub := s.casino.Bus().Subscribe(streamBuffer, topics...)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		sub.Close()
		s.logger.Error("websocket upgrade failed", "err", err)
		return
	}
	s.logger.Info("stream opened", "agent", agentID, "topics", strings.Join(topics, ","))

	// Reader: control frames adjust public subscriptions; any read error
	// means the client went away and tears the stream down.
	go func() {
		defer sub.Close()
		for {
			var ctl control
			if err := conn.ReadJSON(&ctl); err != nil {
				return
			}
			if !publicTopic(ctl.Topic) {
				continue
			}
			switch ctl.Op {
			case "subscribe":
				sub.Add(ctl.Topic)
			case "unsubscribe":
				sub.Remove(ctl.Topic)
			}
		}
	}()

	for ev := range sub.C() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		if err := conn.WriteJSON(ev); err != nil {
			break
		}
	}
	sub.Close()
	_ = conn.Close()
	s.logger.Info("stream closed", "agent", agentID, "dropped", sub.Dropped())
}

func streamTopics(c *gin.Context) []string {
	var topics []string
	if raw := c.Query("tables"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				topics = append(topics, bus.TableTopic(id))
			}
		}
	}
	if truthy(c.Query("duels")) {
		topics = append(topics, bus.DuelsTopic)
	}
	return topics
}

// publicTopic bounds what a control frame may touch: table channels and
// the duel feed. Agent channels only attach through verified identity.
func publicTopic(topic string) bool {
	return topic == bus.DuelsTopic || strings.HasPrefix(topic, "table:")
}

func truthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
