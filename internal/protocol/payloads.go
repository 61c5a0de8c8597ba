package protocol

// --- 客户端 → 服务端 ---

// JoinPayload 加入游戏
type JoinPayload struct {
	DisplayName string `json:"displayName"`
	Color       string `json:"color"`
	Token       string `json:"token,omitempty"` // 断线重连令牌
}

// ChatPayload 聊天 / 猜词（双向）
type ChatPayload struct {
	Text  string `json:"text"`
	Nick  string `json:"nick,omitempty"`
	Color string `json:"color,omitempty"`
}

// Point 画布坐标
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke 单条线段，From 为空表示以 To 为起点开始新的子路径
type Stroke struct {
	From  *Point  `json:"from"`
	To    Point   `json:"to"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

// PingPayload 心跳
type PingPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// GetLeaderboardPayload 获取排行榜
type GetLeaderboardPayload struct {
	Limit int `json:"limit"`
}

// --- 服务端 → 客户端 ---

// JoinedPayload 加入成功
type JoinedPayload struct {
	Nick  string `json:"nick"`
	Color string `json:"color"`
	Token string `json:"token"`
}

// JoinErrorPayload 加入失败
type JoinErrorPayload struct {
	Error string `json:"error"`
}

// UserRef 玩家引用（昵称 + 颜色）
type UserRef struct {
	Nick  string `json:"nick"`
	Color string `json:"color"`
}

// UserEventPayload 玩家加入 / 离开
type UserEventPayload struct {
	Nick  string `json:"nick"`
	Color string `json:"color"`
	Tag   string `json:"tag,omitempty"`
}

// UserInfo users 列表中的单个玩家
type UserInfo struct {
	Nick             string `json:"nick"`
	Color            string `json:"color"`
	Score            int    `json:"score"`
	ScoreThisRound   *int   `json:"scoreThisRound,omitempty"`
	GuessedCorrectly bool   `json:"guessedCorrectly"`
	IsDrawing        bool   `json:"isDrawing"`
}

// StatePayload 状态切换；Drawing / Intermission 附带各自的元数据
type StatePayload struct {
	State      string `json:"state"`
	TimePassed int    `json:"timePassed"`

	// Drawing
	Nick  string `json:"nick,omitempty"`
	Color string `json:"color,omitempty"`
	Hint  string `json:"hint,omitempty"`
	Round int    `json:"round,omitempty"`

	// Drawing / Intermission 的阶段时长（秒）
	Time int `json:"time,omitempty"`

	// Intermission
	NextPlayer *UserRef `json:"nextPlayer,omitempty"`
	Word       string   `json:"word,omitempty"`

	// 仅在加入时的定向补发中出现
	GuessedCorrectly *bool `json:"guessedCorrectly,omitempty"`
}

// YouDrawPayload 画手收到的词
type YouDrawPayload struct {
	Word       string `json:"word"`
	Difficulty string `json:"difficulty"`
}

// StartRoundPayload 回合开始
type StartRoundPayload struct {
	Round  int     `json:"round"`
	Player UserRef `json:"player"`
}

// EndRoundPayload 回合结束
type EndRoundPayload struct {
	Word       string   `json:"word"`
	IsPass     bool     `json:"isPass"`
	AllGuessed bool     `json:"allGuessed"`
	Player     *UserRef `json:"player"`
}

// HintPayload 提示
type HintPayload struct {
	Hint string `json:"hint"`
}

// PointsAward 单个玩家本次得分
type PointsAward struct {
	Nick   string `json:"nick"`
	Points int    `json:"points"`
}

// WordGuessedPayload 有人猜中
type WordGuessedPayload struct {
	Nick           string        `json:"nick"`
	Color          string        `json:"color"`
	TimePassedSecs int           `json:"timePassedSecs"`
	Points         []PointsAward `json:"points"`
}

// PongPayload 心跳响应
type PongPayload struct {
	ClientTimestamp int64 `json:"clientTimestamp"`
	ServerTimestamp int64 `json:"serverTimestamp"`
}

// LeaderboardEntry 排行榜条目
type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	Nick  string `json:"nick"`
	Score int64  `json:"score"`
}

// LeaderboardPayload 排行榜结果
type LeaderboardPayload struct {
	Tag     string             `json:"tag"`
	Entries []LeaderboardEntry `json:"entries"`
}

// ErrorPayload 错误信息
type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
