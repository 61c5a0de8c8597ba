package protocol

import "encoding/json"

// Message 基础消息结构
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MessageType 消息类型
type MessageType string

// 客户端 → 服务端 消息类型
const (
	// 会话操作
	MsgJoin        MessageType = "join"        // 加入游戏
	MsgLeave       MessageType = "leave"       // 主动离开
	MsgChat        MessageType = "message"     // 聊天 / 猜词
	MsgDraw        MessageType = "draw"        // 画笔线段
	MsgClearCanvas MessageType = "clearCanvas" // 清空画布
	MsgReadyToDraw MessageType = "readyToDraw" // 开始作画 / 跳过

	// 连接与查询
	MsgPing           MessageType = "ping"           // 心跳 ping
	MsgGetLeaderboard MessageType = "getLeaderboard" // 获取排行榜
)

// 服务端 → 客户端 消息类型
const (
	// 加入相关
	MsgJoined    MessageType = "joined"    // 加入成功（定向）
	MsgJoinError MessageType = "joinError" // 加入失败（定向）
	MsgYouLeft   MessageType = "youLeft"   // 离开确认（定向）

	// 状态与回合
	MsgState        MessageType = "state"        // 状态切换
	MsgYouDraw      MessageType = "youDraw"      // 轮到你画（定向）
	MsgStartRound   MessageType = "startRound"   // 回合开始
	MsgEndRound     MessageType = "endRound"     // 回合结束
	MsgHint         MessageType = "hint"         // 提示更新
	MsgWordGuessed  MessageType = "wordGuessed"  // 有人猜中
	MsgYouGuessedIt MessageType = "youGuessedIt" // 你猜中了（定向）

	// 玩家列表
	MsgUsers      MessageType = "users"      // 按分数排序的玩家列表
	MsgUserJoined MessageType = "userJoined" // 玩家加入
	MsgUserLeft   MessageType = "userLeft"   // 玩家离开

	// 画布
	MsgDrawCanvas MessageType = "drawCanvas" // 完整画布历史（定向）

	// 其他
	MsgPong        MessageType = "pong"        // 心跳 pong
	MsgLeaderboard MessageType = "leaderboard" // 排行榜结果
	MsgError       MessageType = "error"       // 错误消息
)

// 服务端与客户端双向共用：MsgChat、MsgDraw、MsgClearCanvas
